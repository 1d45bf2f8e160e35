package pyoracle

import (
	"sort"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// ScopeKind classifies a Python namespace.
type ScopeKind string

const (
	ScopeModule        ScopeKind = "module"
	ScopeClass         ScopeKind = "class"
	ScopeFunction      ScopeKind = "function"
	ScopeLambda        ScopeKind = "lambda"
	ScopeComprehension ScopeKind = "comprehension"
)

// scope is one namespace. Bindings are kept in source order per name.
type scope struct {
	kind      ScopeKind
	qual      string // dotted path below the module, "" for the module itself
	parent    *scope
	bindings  map[string][]*binding
	globals   map[string]bool
	nonlocals map[string]bool
}

func newScope(kind ScopeKind, qual string, parent *scope) *scope {
	return &scope{
		kind:      kind,
		qual:      qual,
		parent:    parent,
		bindings:  make(map[string][]*binding),
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
}

// child returns a new scope nested in s. Named scopes extend the qualname;
// comprehensions share their parent's.
func (s *scope) child(kind ScopeKind, name string) *scope {
	qual := s.qual
	if name != "" {
		if qual == "" {
			qual = name
		} else {
			qual = qual + "." + name
		}
	}
	return newScope(kind, qual, s)
}

func (s *scope) module() *scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// enclosingFunction returns the nearest function-like ancestor of s, or the
// module scope when there is none.
func (s *scope) enclosingFunction() *scope {
	for cur := s.parent; cur != nil; cur = cur.parent {
		if cur.kind == ScopeFunction || cur.kind == ScopeLambda {
			return cur
		}
	}
	return s.module()
}

func (s *scope) add(b *binding) {
	s.bindings[b.name] = append(s.bindings[b.name], b)
}

// first returns the earliest binding of name in s.
func (s *scope) first(name string) *binding {
	if bs := s.bindings[name]; len(bs) > 0 {
		return bs[0]
	}
	return nil
}

// importSpec records what an import binding refers to. module is dotted and
// may start with dots for relative imports; member is set for from-imports.
type importSpec struct {
	module string
	member string
}

// binding is one definition site.
type binding struct {
	name   string
	kind   string
	line   int
	column int
	start  uint
	scope  *scope
	body   *scope // scope opened by a class or function
	doc    string
	imp    *importSpec
}

// scopeName is the dotted name of the binding's enclosing scope, starting at
// the module name.
func (b *binding) scopeName(modName string) string {
	if b.scope.qual == "" {
		return modName
	}
	return modName + "." + b.scope.qual
}

func (b *binding) toName(m *module) grapher.Name {
	sn := b.scopeName(m.name)
	return grapher.Name{
		Name:       b.name,
		Kind:       b.kind,
		Line:       b.line,
		Column:     b.column,
		FullName:   sn + "." + b.name,
		ScopeName:  sn,
		ModulePath: m.path,
		Docstring:  b.doc,
		Definition: true,
	}
}

// preferNearest orders bindings so that the last one preceding pos comes
// first, followed by the rest in source order.
func preferNearest(bs []*binding, pos uint) []*binding {
	nearest := -1
	for i, b := range bs {
		if b.start < pos {
			nearest = i
		}
	}
	if nearest <= 0 {
		return bs
	}
	out := make([]*binding, 0, len(bs))
	out = append(out, bs[nearest])
	out = append(out, bs[:nearest]...)
	out = append(out, bs[nearest+1:]...)
	return out
}

// refKind says how a use is resolved.
type refKind int

const (
	refPlain  refKind = iota // LEGB lookup of a bare name
	refAttr                  // attribute of a dotted object chain
	refModule                // module path segment in an import
	refMember                // imported member in an aliased from-import
)

// occurrence is one identifier in the analyzed file.
type occurrence struct {
	name   grapher.Name
	start  uint
	scope  *scope
	kind   refKind
	chain  []string // refAttr: the object expression as dotted segments
	module string   // refModule, refMember: dotted module path
	def    *binding // set when the occurrence is a definition site
}

type position struct {
	line, column int
}

func sortOccurrences(occs []*occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		return occs[i].start < occs[j].start
	})
}
