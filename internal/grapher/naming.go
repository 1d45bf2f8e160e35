package grapher

import (
	"path"
	"strings"
)

const packageInit = "__init__.py"

// FullPath derives the canonical Path of the symbol n names. The same
// algorithm produces Def.Path for definitions and Ref.DefPath for resolved
// references, so the two always agree.
func (c *Canonicalizer) FullPath(n Name) (string, error) {
	name, err := c.qualify(n)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, ".", "/"), nil
}

func (c *Canonicalizer) qualify(n Name) (string, error) {
	if n.Builtin {
		return n.Name, nil
	}

	name := n.FullName
	if n.Kind == KindStatement || n.Kind == KindParam {
		name = n.ScopeName + "." + n.Name
	}

	modulePath, err := c.Relativize(n.ModulePath)
	if err != nil {
		return "", err
	}

	var parent string
	if path.Base(modulePath) == packageInit {
		parent = path.Dir(path.Dir(modulePath))
	} else {
		parent = path.Dir(modulePath)
	}
	if parent == "." || parent == "" {
		return name, nil
	}
	return parent + "." + name, nil
}

// ModulePath returns the path of the synthetic module definition for a
// project-relative file: the file without its extension, or the containing
// directory for a package initializer.
func ModulePath(relFile string) string {
	relFile = path.Clean(relFile)
	if path.Base(relFile) == packageInit {
		return path.Dir(relFile)
	}
	return strings.TrimSuffix(relFile, path.Ext(relFile))
}
