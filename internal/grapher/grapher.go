// Package grapher extracts symbol definitions and references from a single
// source file, on top of an external semantic-analysis Oracle.
//
// The grapher owns identity, not analysis: it converts oracle positions to
// byte offsets, canonicalizes module paths into project-relative paths,
// derives a stable Path for every symbol, and de-duplicates the resulting
// records. A FileGrapher holds no state shared with other FileGraphers, so
// files can be graphed in parallel with one FileGrapher each.
package grapher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"unicode/utf8"
)

// refExcerptLen bounds the reference excerpt logged on resolution failures.
const refExcerptLen = 50

// Option configures a FileGrapher.
type Option func(*FileGrapher)

// WithLogger sets the sink for non-fatal diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(g *FileGrapher) {
		if log != nil {
			g.log = log
		}
	}
}

// WithCanonicalizer replaces the default Canonicalizer for the project root.
func WithCanonicalizer(c *Canonicalizer) Option {
	return func(g *FileGrapher) {
		if c != nil {
			g.canon = c
		}
	}
}

// WithSource supplies the file contents instead of reading them from disk.
func WithSource(source []byte) Option {
	return func(g *FileGrapher) {
		g.source = source
	}
}

// FileGrapher extracts the definitions and references of one file.
type FileGrapher struct {
	root    string
	absFile string
	oracle  Oracle
	canon   *Canonicalizer
	log     *slog.Logger

	source  []byte
	offsets *OffsetTable
	relFile string
	result  *Result
}

// New returns a FileGrapher for file inside the project rooted at root.
// Relative paths are resolved against the working directory.
func New(root, file string, oracle Oracle, opts ...Option) (*FileGrapher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", file, err)
	}
	g := &FileGrapher{
		root:    absRoot,
		absFile: absFile,
		oracle:  oracle,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.canon == nil {
		g.canon = NewCanonicalizer(absRoot, nil, "")
	}
	return g, nil
}

// Graph runs the extraction. Parse, path canonicalization and offset errors
// fail the whole file and are returned as *FileError. Failures resolving a
// single reference are logged and that reference is skipped.
func (g *FileGrapher) Graph(ctx context.Context) (*Result, error) {
	res, err := g.graph(ctx)
	if err != nil {
		return nil, &FileError{Path: g.absFile, Err: err}
	}
	return res, nil
}

func (g *FileGrapher) graph(ctx context.Context) (*Result, error) {
	if err := g.load(); err != nil {
		return nil, err
	}

	g.addModuleDef()

	script, err := g.oracle.Parse(ctx, g.absFile, g.source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrParse, g.absFile, err)
	}

	var defs, uses []Name
	for _, n := range script.Names() {
		if n.Definition {
			defs = append(defs, n)
		} else {
			uses = append(uses, n)
		}
	}

	// Only import bindings become standalone Defs; other definitions are
	// reachable through the module Def and through references.
	for _, n := range defs {
		if n.Kind != KindImport {
			continue
		}
		d, err := g.toDef(n)
		if err != nil {
			return nil, err
		}
		g.addDef(d)
	}

	for _, use := range uses {
		if err := g.addUse(ctx, script, use); err != nil {
			return nil, err
		}
	}

	return g.result, nil
}

// load reads the source and builds the offset table.
func (g *FileGrapher) load() error {
	if g.source == nil {
		src, err := os.ReadFile(g.absFile)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		g.source = src
	}
	g.offsets = NewOffsetTable(g.source)

	rel, err := g.canon.Relativize(g.absFile)
	if err != nil {
		return err
	}
	g.relFile = rel
	g.result = newResult(rel)
	return nil
}

// addModuleDef emits the synthetic Def for the file's own module.
func (g *FileGrapher) addModuleDef() {
	module := ModulePath(g.relFile)
	g.addDef(Def{
		Path:     module,
		Kind:     KindModule,
		Name:     path.Base(module),
		File:     g.relFile,
		Exported: true,
	})
}

// addUse resolves one use and records a reference to its first target.
func (g *FileGrapher) addUse(ctx context.Context, script Script, use Name) error {
	targets, err := script.Goto(ctx, use)
	if err != nil {
		g.log.Error("error getting definitions for reference",
			"file", g.relFile,
			"ref", excerpt(use.String(), refExcerptLen),
			"err", fmt.Errorf("%w: %v", ErrResolve, err),
		)
		return nil
	}
	if len(targets) == 0 {
		return nil
	}

	target := targets[0]
	defPath, err := g.canon.FullPath(target)
	if err != nil {
		return err
	}
	start, err := g.offsets.Offset(use.Line, use.Column)
	if err != nil {
		return err
	}
	g.result.addRef(Ref{
		DefPath:   defPath,
		DefFile:   target.ModulePath,
		Def:       false,
		File:      g.relFile,
		Start:     start,
		End:       start + len(use.Name),
		ToBuiltin: target.Builtin,
	})
	return nil
}

// toDef converts a definition name into a Def located in this file.
func (g *FileGrapher) toDef(n Name) (Def, error) {
	p, err := g.canon.FullPath(n)
	if err != nil {
		return Def{}, err
	}
	start, err := g.offsets.Offset(n.Line, n.Column)
	if err != nil {
		return Def{}, err
	}
	return Def{
		Path:      p,
		Kind:      n.Kind,
		Name:      n.Name,
		File:      g.relFile,
		DefStart:  start,
		DefEnd:    start + len(n.Name),
		Exported:  true,
		Docstring: n.Docstring,
	}, nil
}

// addDef inserts d if its Path is new and, unless d is a module, the
// self-reference spanning its defining token.
func (g *FileGrapher) addDef(d Def) {
	if !g.result.addDef(d) {
		return
	}
	if d.Kind == KindModule {
		return
	}
	g.result.addRef(Ref{
		DefPath: d.Path,
		DefFile: g.absFile,
		Def:     true,
		File:    d.File,
		Start:   d.DefStart,
		End:     d.DefEnd,
	})
}

// excerpt returns at most n bytes of s without splitting a rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
