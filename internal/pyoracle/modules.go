package pyoracle

import (
	"os"
	"path/filepath"
	"strings"
)

const initFile = "__init__.py"

// module is an analyzed Python module: a source file, or a namespace
// package directory with no source.
type module struct {
	path      string // absolute file, or directory for a namespace package
	name      string // the module's own name: file stem or package directory
	dir       string // directory that relative imports start from
	isPackage bool
	doc       string
	top       *scope
}

// newModule describes the module at path; namespace marks a package
// directory without an initializer.
func newModule(path string, namespace bool) *module {
	m := &module{path: path, top: newScope(ScopeModule, "", nil)}
	base := filepath.Base(path)
	switch {
	case namespace:
		m.dir = path
		m.name = base
		m.isPackage = true
	case base == initFile:
		m.dir = filepath.Dir(path)
		m.name = filepath.Base(m.dir)
		m.isPackage = true
	default:
		m.dir = filepath.Dir(path)
		m.name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return m
}

// finder locates module files the way the import system searches sys.path:
// relative imports from the importing module's package, absolute imports in
// each root in order.
type finder struct {
	roots []string
}

// find resolves a dotted module name imported from m.
func (f *finder) find(dotted string, from *module) (string, bool) {
	if strings.HasPrefix(dotted, ".") {
		return f.findRelative(dotted, from)
	}
	parts := strings.Split(dotted, ".")
	for _, root := range f.roots {
		if p, ok := probe(root, parts); ok {
			return p, true
		}
	}
	return "", false
}

func (f *finder) findRelative(dotted string, from *module) (string, bool) {
	rest := strings.TrimLeft(dotted, ".")
	levels := len(dotted) - len(rest)

	base := from.dir
	for i := 1; i < levels; i++ {
		base = filepath.Dir(base)
	}
	if rest == "" {
		return packageAt(base)
	}
	return probe(base, strings.Split(rest, "."))
}

// submodule resolves name as a module inside package m.
func (f *finder) submodule(m *module, name string) (string, bool) {
	if !m.isPackage {
		return "", false
	}
	return probe(m.dir, []string{name})
}

// probe looks for base/parts as a module file, a regular package, or a
// namespace package directory, in that order.
func probe(base string, parts []string) (string, bool) {
	p := filepath.Join(append([]string{base}, parts...)...)
	if isFile(p + ".py") {
		return p + ".py", true
	}
	return packageAt(p)
}

func packageAt(dir string) (string, bool) {
	if init := filepath.Join(dir, initFile); isFile(init) {
		return init, true
	}
	if isDir(dir) {
		return dir, true
	}
	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
