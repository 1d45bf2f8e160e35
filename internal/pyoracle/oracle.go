// Package pyoracle is a Python implementation of grapher.Oracle built on
// tree-sitter. It enumerates every name in a file, tracks Python's scoping
// rules, and resolves uses to definitions across modules found under the
// project root and the configured search paths.
package pyoracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// DefaultMaxDepth bounds import and attribute chains followed while
// resolving one use.
const DefaultMaxDepth = 16

// ErrDepthExceeded reports a resolution chain longer than the configured
// limit, usually an import cycle.
var ErrDepthExceeded = errors.New("resolution depth exceeded")

// Option configures an Oracle.
type Option func(*Oracle)

// WithSearchPaths adds directories searched for absolute imports after the
// project root, such as a virtualenv's site-packages.
func WithSearchPaths(paths ...string) Option {
	return func(o *Oracle) {
		o.searchPaths = append(o.searchPaths, paths...)
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *Oracle) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// Oracle parses Python files. It holds no per-file state, so one Oracle may
// be shared by concurrent graphers; each Script it returns may not.
type Oracle struct {
	root        string
	searchPaths []string
	maxDepth    int
	lang        *tree_sitter.Language
}

// New returns an Oracle for the project rooted at root.
func New(root string, opts ...Option) (*Oracle, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	o := &Oracle{
		root:     absRoot,
		maxDepth: DefaultMaxDepth,
		lang:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Parse analyzes source as the module at path. Any syntax error fails the
// parse.
func (o *Oracle) Parse(ctx context.Context, path string, source []byte) (grapher.Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	tree, err := o.parseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root)
	}

	main := newModule(absPath, false)
	b := &builder{src: source, mod: main, record: true}
	b.build(root)
	sortOccurrences(b.occs)

	s := &Script{
		oracle:  o,
		main:    main,
		occs:    b.occs,
		byPos:   make(map[position]*occurrence, len(b.occs)),
		modules: map[string]*module{absPath: main},
		finder:  &finder{roots: append([]string{o.root}, o.searchPaths...)},
	}
	for _, occ := range b.occs {
		s.byPos[position{occ.name.Line, occ.name.Column}] = occ
	}
	return s, nil
}

// parseTree creates a parser per call; tree-sitter parsers are not safe
// for concurrent use.
func (o *Oracle) parseTree(source []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(o.lang); err != nil {
		return nil, fmt.Errorf("set language python: %w", err)
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New("tree-sitter returned nil tree")
	}
	return tree, nil
}

// syntaxError locates the first error or missing node below n.
func syntaxError(n *tree_sitter.Node) error {
	if bad := firstError(n); bad != nil {
		pos := bad.StartPosition()
		if bad.IsMissing() {
			return fmt.Errorf("syntax error at line %d column %d: missing %s", pos.Row+1, pos.Column, bad.Kind())
		}
		return fmt.Errorf("syntax error at line %d column %d", pos.Row+1, pos.Column)
	}
	return errors.New("syntax error")
}

func firstError(n *tree_sitter.Node) *tree_sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}

// Script is one analyzed file plus the foreign modules loaded while
// resolving its names.
type Script struct {
	oracle  *Oracle
	main    *module
	occs    []*occurrence
	byPos   map[position]*occurrence
	modules map[string]*module
	finder  *finder
}

// Names returns every occurrence in source order.
func (s *Script) Names() []grapher.Name {
	names := make([]grapher.Name, len(s.occs))
	for i, occ := range s.occs {
		// Docstrings are attached after the binding is recorded.
		if occ.def != nil {
			names[i] = occ.def.toName(s.main)
			continue
		}
		names[i] = occ.name
	}
	return names
}

// load returns the module at path, parsing it on first use. A directory is
// a namespace package. Syntax errors in foreign modules are tolerated.
func (s *Script) load(path string) (*module, error) {
	if m, ok := s.modules[path]; ok {
		return m, nil
	}
	if isDir(path) {
		m := newModule(path, true)
		s.modules[path] = m
		return m, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	tree, err := s.oracle.parseTree(src)
	if err != nil {
		return nil, fmt.Errorf("parse module %s: %w", path, err)
	}
	defer tree.Close()

	m := newModule(path, false)
	b := &builder{src: src, mod: m}
	b.build(tree.RootNode())
	s.modules[path] = m
	return m, nil
}
