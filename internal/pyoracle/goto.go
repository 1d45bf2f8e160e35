package pyoracle

import (
	"context"
	"fmt"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// target is a resolved definition: a binding inside mod, or mod itself
// when b is nil, or a built-in.
type target struct {
	mod     *module
	b       *binding
	builtin *grapher.Name
}

func (t target) name() grapher.Name {
	switch {
	case t.builtin != nil:
		return *t.builtin
	case t.b != nil:
		return t.b.toName(t.mod)
	}
	return grapher.Name{
		Name:       t.mod.name,
		Kind:       grapher.KindModule,
		FullName:   t.mod.name,
		ModulePath: t.mod.path,
		Docstring:  t.mod.doc,
		Definition: true,
	}
}

// namespace returns the scope whose bindings are the target's attributes.
func (t target) namespace() *scope {
	if t.b == nil {
		return t.mod.top
	}
	if t.b.kind == grapher.KindClass {
		return t.b.body
	}
	return nil
}

// Goto resolves use, which must be a name returned by Names. Definitions
// resolve to themselves.
func (s *Script) Goto(ctx context.Context, use grapher.Name) ([]grapher.Name, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	occ, ok := s.byPos[position{use.Line, use.Column}]
	if !ok {
		return nil, fmt.Errorf("no name at line %d column %d", use.Line, use.Column)
	}
	if occ.def != nil {
		return []grapher.Name{occ.def.toName(s.main)}, nil
	}

	targets, err := s.resolve(occ)
	if err != nil {
		return nil, err
	}
	names := make([]grapher.Name, len(targets))
	for i, t := range targets {
		names[i] = t.name()
	}
	return names, nil
}

func (s *Script) resolve(occ *occurrence) ([]target, error) {
	name := occ.name.Name
	switch occ.kind {
	case refModule:
		m, ok, err := s.importModule(s.main, occ.module)
		if err != nil || !ok {
			return nil, err
		}
		return []target{{mod: m}}, nil

	case refMember:
		m, ok, err := s.importModule(s.main, occ.module)
		if err != nil || !ok {
			return nil, err
		}
		return s.member(m, name)

	case refAttr:
		if len(occ.chain) == 0 {
			return nil, nil
		}
		obj, ok, err := s.evalChain(occ.scope, occ.chain, occ.start)
		if err != nil || !ok {
			return nil, err
		}
		return s.attribute(obj, name)
	}

	bs := lookup(occ.scope, name)
	if len(bs) == 0 {
		if b, ok := builtinName(name); ok {
			return []target{{builtin: &b}}, nil
		}
		return nil, nil
	}
	bs = preferNearest(bs, occ.start)
	targets := make([]target, len(bs))
	for i, b := range bs {
		targets[i] = target{mod: s.main, b: b}
	}
	return targets, nil
}

// lookup finds the bindings of name visible from s. Class bodies are only
// visible to code directly inside them.
func lookup(s *scope, name string) []*binding {
	cur := s
	direct := true
	switch {
	case s.globals[name]:
		cur = s.module()
		direct = false
	case s.nonlocals[name]:
		cur = s.parent
		direct = false
	}
	for ; cur != nil; cur = cur.parent {
		if cur.kind == ScopeClass && !direct {
			continue
		}
		if bs := cur.bindings[name]; len(bs) > 0 {
			return bs
		}
		direct = false
	}
	return nil
}

// evalChain resolves a dotted object expression to the namespace it
// denotes. Only modules and classes are namespaces.
func (s *Script) evalChain(sc *scope, chain []string, pos uint) (target, bool, error) {
	bs := lookup(sc, chain[0])
	if len(bs) == 0 {
		return target{}, false, nil
	}
	cur, ok, err := s.infer(target{mod: s.main, b: preferNearest(bs, pos)[0]}, 0)
	if err != nil || !ok {
		return target{}, false, err
	}
	for _, attr := range chain[1:] {
		ts, err := s.attribute(cur, attr)
		if err != nil || len(ts) == 0 {
			return target{}, false, err
		}
		cur, ok, err = s.infer(ts[0], 0)
		if err != nil || !ok {
			return target{}, false, err
		}
	}
	return cur, true, nil
}

// infer follows import bindings to the module or class they name.
func (s *Script) infer(t target, depth int) (target, bool, error) {
	if depth > s.oracle.maxDepth {
		return target{}, false, fmt.Errorf("%w: following %s in %s", ErrDepthExceeded, t.name().FullName, t.mod.path)
	}
	if t.builtin != nil {
		return target{}, false, nil
	}
	if t.b == nil || t.b.kind == grapher.KindClass {
		return t, true, nil
	}
	if t.b.imp == nil {
		return target{}, false, nil
	}

	m, ok, err := s.importModule(t.mod, t.b.imp.module)
	if err != nil || !ok {
		return target{}, false, err
	}
	if t.b.imp.member == "" {
		return target{mod: m}, true, nil
	}
	ts, err := s.member(m, t.b.imp.member)
	if err != nil || len(ts) == 0 {
		return target{}, false, err
	}
	return s.infer(ts[0], depth+1)
}

// attribute resolves name on the namespace t.
func (s *Script) attribute(t target, name string) ([]target, error) {
	if t.b == nil {
		return s.member(t.mod, name)
	}
	ns := t.namespace()
	if ns == nil {
		return nil, nil
	}
	var out []target
	for _, b := range preferNearest(ns.bindings[name], ^uint(0)) {
		out = append(out, target{mod: t.mod, b: b})
	}
	return out, nil
}

// member resolves name as a module attribute: a top-level binding, the
// last one first, or else a submodule of a package.
func (s *Script) member(m *module, name string) ([]target, error) {
	if bs := m.top.bindings[name]; len(bs) > 0 {
		bs = preferNearest(bs, ^uint(0))
		out := make([]target, len(bs))
		for i, b := range bs {
			out[i] = target{mod: m, b: b}
		}
		return out, nil
	}
	path, ok := s.finder.submodule(m, name)
	if !ok {
		return nil, nil
	}
	sub, err := s.load(path)
	if err != nil {
		return nil, err
	}
	return []target{{mod: sub}}, nil
}

// importModule finds and loads the module dotted names when imported from
// from.
func (s *Script) importModule(from *module, dotted string) (*module, bool, error) {
	path, ok := s.finder.find(dotted, from)
	if !ok {
		return nil, false, nil
	}
	m, err := s.load(path)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}
