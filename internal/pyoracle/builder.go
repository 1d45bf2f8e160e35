package pyoracle

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// builder walks one module's syntax tree, recording bindings into the
// module's scopes and, when record is set, every name occurrence.
type builder struct {
	src    []byte
	mod    *module
	record bool
	occs   []*occurrence
}

func (b *builder) build(root *tree_sitter.Node) {
	b.mod.doc = docstring(root, b.src)
	b.visitChildren(root, b.mod.top)
}

func (b *builder) visitChildren(n *tree_sitter.Node, s *scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			b.visit(c, s)
		}
	}
}

func (b *builder) visit(n *tree_sitter.Node, s *scope) {
	switch n.Kind() {
	case "identifier":
		b.use(n, s, refPlain, nil, "")

	case "comment", "future_import_statement":

	case "function_definition":
		b.visitFunction(n, s)

	case "class_definition":
		b.visitClass(n, s)

	case "lambda":
		inner := s.child(ScopeLambda, "lambda")
		if params := n.ChildByFieldName("parameters"); params != nil {
			b.visitParams(params, s, inner)
		}
		b.visitField(n, "body", inner)

	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		b.visitComprehension(n, s)

	case "assignment", "augmented_assignment":
		b.visitField(n, "type", s)
		b.visitField(n, "right", s)
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindTarget(left, s, grapher.KindStatement)
		}

	case "for_statement":
		b.visitField(n, "right", s)
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindTarget(left, s, grapher.KindStatement)
		}
		b.visitField(n, "body", s)
		b.visitField(n, "alternative", s)

	case "named_expression":
		b.visitField(n, "value", s)
		if name := n.ChildByFieldName("name"); name != nil {
			// Assignment expressions in a comprehension bind in the
			// enclosing function.
			target := s
			for target.kind == ScopeComprehension && target.parent != nil {
				target = target.parent
			}
			b.define(name, target, grapher.KindStatement)
		}

	case "as_pattern":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if c == nil {
				continue
			}
			if c.Kind() == "as_pattern_target" {
				b.bindChildren(c, s, grapher.KindStatement)
			} else {
				b.visit(c, s)
			}
		}

	case "except_clause":
		alias := n.ChildByFieldName("alias")
		if alias == nil {
			b.visitChildren(n, s)
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if c == nil {
				continue
			}
			if c.StartByte() == alias.StartByte() {
				b.bindTarget(c, s, grapher.KindStatement)
			} else {
				b.visit(c, s)
			}
		}

	case "global_statement", "nonlocal_statement":
		global := n.Kind() == "global_statement"
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if c == nil || c.Kind() != "identifier" {
				continue
			}
			name := c.Utf8Text(b.src)
			if global {
				s.globals[name] = true
			} else {
				s.nonlocals[name] = true
			}
			b.use(c, s, refPlain, nil, "")
		}

	case "import_statement":
		b.visitImport(n, s)

	case "import_from_statement":
		b.visitImportFrom(n, s)

	case "keyword_argument":
		b.visitField(n, "value", s)

	case "attribute":
		b.visitAttribute(n, s)

	case "dotted_name":
		parts := b.identifiers(n)
		for i, id := range parts {
			if i == 0 {
				b.use(id, s, refPlain, nil, "")
				continue
			}
			b.use(id, s, refAttr, b.texts(parts[:i]), "")
		}

	default:
		b.visitChildren(n, s)
	}
}

func (b *builder) visitField(n *tree_sitter.Node, field string, s *scope) {
	if c := n.ChildByFieldName(field); c != nil {
		b.visit(c, s)
	}
}

// visitFunction binds the function name in s and its parameters in a new
// scope. Decorators, defaults and annotations are evaluated in s.
func (b *builder) visitFunction(n *tree_sitter.Node, s *scope) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		b.visitChildren(n, s)
		return
	}
	b.visitField(n, "return_type", s)

	inner := s.child(ScopeFunction, nameNode.Utf8Text(b.src))
	bd := b.define(nameNode, s, grapher.KindFunction)
	bd.body = inner

	if params := n.ChildByFieldName("parameters"); params != nil {
		b.visitParams(params, s, inner)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		bd.doc = docstring(body, b.src)
		b.visitChildren(body, inner)
	}
}

func (b *builder) visitClass(n *tree_sitter.Node, s *scope) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		b.visitChildren(n, s)
		return
	}
	b.visitField(n, "superclasses", s)

	inner := s.child(ScopeClass, nameNode.Utf8Text(b.src))
	bd := b.define(nameNode, s, grapher.KindClass)
	bd.body = inner

	if body := n.ChildByFieldName("body"); body != nil {
		bd.doc = docstring(body, b.src)
		b.visitChildren(body, inner)
	}
}

// visitParams binds parameter names in inner; default values and
// annotations belong to outer.
func (b *builder) visitParams(params *tree_sitter.Node, outer, inner *scope) {
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "identifier":
			b.define(p, inner, grapher.KindParam)
		case "default_parameter", "typed_default_parameter":
			b.visitField(p, "type", outer)
			b.visitField(p, "value", outer)
			if name := p.ChildByFieldName("name"); name != nil {
				b.bindParam(name, inner)
			}
		case "typed_parameter":
			b.visitField(p, "type", outer)
			if p.NamedChildCount() > 0 {
				b.bindParam(p.NamedChild(0), inner)
			}
		case "list_splat_pattern", "dictionary_splat_pattern", "tuple_pattern":
			b.bindParam(p, inner)
		}
	}
}

func (b *builder) bindParam(n *tree_sitter.Node, inner *scope) {
	if n == nil {
		return
	}
	if n.Kind() == "identifier" {
		b.define(n, inner, grapher.KindParam)
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		b.bindParam(n.NamedChild(i), inner)
	}
}

// visitComprehension opens one scope for the whole comprehension. The
// first iterable is evaluated in the enclosing scope.
func (b *builder) visitComprehension(n *tree_sitter.Node, s *scope) {
	inner := s.child(ScopeComprehension, "")
	firstFor := true
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		if c.Kind() != "for_in_clause" {
			b.visit(c, inner)
			continue
		}
		iterScope := inner
		if firstFor {
			iterScope = s
			firstFor = false
		}
		b.visitField(c, "right", iterScope)
		if left := c.ChildByFieldName("left"); left != nil {
			b.bindTarget(left, inner, grapher.KindStatement)
		}
	}
}

// bindTarget binds every name an assignment target introduces. Attribute
// and subscript targets only reference names.
func (b *builder) bindTarget(n *tree_sitter.Node, s *scope, kind string) {
	switch n.Kind() {
	case "identifier":
		b.define(n, s, kind)
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern", "list_splat", "expression_list":
		b.bindChildren(n, s, kind)
	default:
		b.visit(n, s)
	}
}

func (b *builder) bindChildren(n *tree_sitter.Node, s *scope, kind string) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			b.bindTarget(c, s, kind)
		}
	}
}

// visitImport handles "import a.b.c" and "import a.b as x".
func (b *builder) visitImport(n *tree_sitter.Node, s *scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			parts := b.identifiers(c)
			for j, id := range parts {
				if j == 0 {
					bd := b.define(id, s, grapher.KindImport)
					bd.imp = &importSpec{module: id.Utf8Text(b.src)}
					continue
				}
				b.use(id, s, refModule, nil, strings.Join(b.texts(parts[:j+1]), "."))
			}
		case "aliased_import":
			name := c.ChildByFieldName("name")
			alias := c.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			parts := b.identifiers(name)
			for j, id := range parts {
				b.use(id, s, refModule, nil, strings.Join(b.texts(parts[:j+1]), "."))
			}
			bd := b.define(alias, s, grapher.KindImport)
			bd.imp = &importSpec{module: name.Utf8Text(b.src)}
		}
	}
}

// visitImportFrom handles "from m import y", "from m import y as z" and the
// relative forms. Star imports bind nothing.
func (b *builder) visitImportFrom(n *tree_sitter.Node, s *scope) {
	modNode := n.ChildByFieldName("module_name")
	if modNode == nil {
		return
	}

	var prefix string
	var parts []*tree_sitter.Node
	switch modNode.Kind() {
	case "relative_import":
		for i := uint(0); i < modNode.NamedChildCount(); i++ {
			c := modNode.NamedChild(i)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "import_prefix":
				prefix = c.Utf8Text(b.src)
			case "dotted_name":
				parts = b.identifiers(c)
			}
		}
	default:
		parts = b.identifiers(modNode)
	}
	for j, id := range parts {
		b.use(id, s, refModule, nil, prefix+strings.Join(b.texts(parts[:j+1]), "."))
	}
	modName := prefix + strings.Join(b.texts(parts), ".")

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.StartByte() == modNode.StartByte() {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			ids := b.identifiers(c)
			if len(ids) == 0 {
				continue
			}
			bd := b.define(ids[0], s, grapher.KindImport)
			bd.imp = &importSpec{module: modName, member: bd.name}
		case "aliased_import":
			name := c.ChildByFieldName("name")
			alias := c.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			ids := b.identifiers(name)
			if len(ids) == 0 {
				continue
			}
			member := ids[0].Utf8Text(b.src)
			b.use(ids[0], s, refMember, nil, modName)
			bd := b.define(alias, s, grapher.KindImport)
			bd.imp = &importSpec{module: modName, member: member}
		}
	}
}

// visitAttribute records the attribute name with the object chain it hangs
// off. Objects that are not plain dotted chains leave the chain empty.
func (b *builder) visitAttribute(n *tree_sitter.Node, s *scope) {
	obj := n.ChildByFieldName("object")
	attr := n.ChildByFieldName("attribute")
	if obj != nil {
		b.visit(obj, s)
	}
	if attr == nil {
		return
	}
	chain, _ := b.chain(obj)
	b.use(attr, s, refAttr, chain, "")
}

// chain flattens identifier and attribute nodes into dotted segments.
func (b *builder) chain(n *tree_sitter.Node) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind() {
	case "identifier":
		return []string{n.Utf8Text(b.src)}, true
	case "attribute":
		head, ok := b.chain(n.ChildByFieldName("object"))
		if !ok {
			return nil, false
		}
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return nil, false
		}
		return append(head, attr.Utf8Text(b.src)), true
	}
	return nil, false
}

func (b *builder) identifiers(n *tree_sitter.Node) []*tree_sitter.Node {
	if n.Kind() == "identifier" {
		return []*tree_sitter.Node{n}
	}
	var ids []*tree_sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil && c.Kind() == "identifier" {
			ids = append(ids, c)
		}
	}
	return ids
}

func (b *builder) texts(ids []*tree_sitter.Node) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Utf8Text(b.src)
	}
	return out
}

// bindingScope applies global and nonlocal declarations of s to name.
func bindingScope(s *scope, name string) *scope {
	switch {
	case s.globals[name]:
		return s.module()
	case s.nonlocals[name]:
		for cur := s.parent; cur != nil; cur = cur.parent {
			if cur.kind != ScopeFunction && cur.kind != ScopeLambda {
				continue
			}
			if cur.first(name) != nil {
				return cur
			}
		}
		return s.enclosingFunction()
	}
	return s
}

func (b *builder) define(id *tree_sitter.Node, s *scope, kind string) *binding {
	name := id.Utf8Text(b.src)
	pos := id.StartPosition()
	bd := &binding{
		name:   name,
		kind:   kind,
		line:   int(pos.Row) + 1,
		column: int(pos.Column),
		start:  id.StartByte(),
		scope:  bindingScope(s, name),
	}
	bd.scope.add(bd)
	if b.record {
		b.occs = append(b.occs, &occurrence{
			name:  bd.toName(b.mod),
			start: bd.start,
			scope: s,
			def:   bd,
		})
	}
	return bd
}

func (b *builder) use(id *tree_sitter.Node, s *scope, kind refKind, chain []string, module string) {
	if !b.record {
		return
	}
	name := id.Utf8Text(b.src)
	pos := id.StartPosition()
	scopeName := b.mod.name
	if s.qual != "" {
		scopeName += "." + s.qual
	}
	nameKind := grapher.KindStatement
	if kind == refModule {
		nameKind = grapher.KindModule
	}
	b.occs = append(b.occs, &occurrence{
		name: grapher.Name{
			Name:       name,
			Kind:       nameKind,
			Line:       int(pos.Row) + 1,
			Column:     int(pos.Column),
			FullName:   scopeName + "." + name,
			ScopeName:  scopeName,
			ModulePath: b.mod.path,
		},
		start:  id.StartByte(),
		scope:  s,
		kind:   kind,
		chain:  chain,
		module: module,
	})
}
