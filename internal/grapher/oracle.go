package grapher

import (
	"context"
	"fmt"
)

// Name is one name occurrence reported by an Oracle, either a definition
// site or a use.
type Name struct {
	// Name is the bare identifier.
	Name string
	// Kind is one of the Kind* constants or another oracle-specific kind.
	Kind string
	// Line is 1-indexed, Column is a 0-indexed byte column.
	Line   int
	Column int
	// FullName is the dotted name starting at the owning module's own name,
	// e.g. "mod.Class.method".
	FullName string
	// ScopeName is the dotted name of the enclosing scope, e.g. "mod.Class".
	ScopeName string
	// ModulePath is the absolute path of the owning module file (or package
	// directory). Empty for built-ins.
	ModulePath string
	Docstring  string
	Definition bool
	Builtin    bool
}

// String renders n for diagnostics.
func (n Name) String() string {
	return fmt.Sprintf("<Name %s %s@%d,%d full=%s>", n.Kind, n.Name, n.Line, n.Column, n.FullName)
}

// Oracle is the semantic-analysis engine the grapher consumes. Parse fails
// when the file cannot be analyzed at all.
type Oracle interface {
	Parse(ctx context.Context, path string, source []byte) (Script, error)
}

// Script is an analyzed file.
type Script interface {
	// Names enumerates every name occurrence in the file across all nested
	// scopes, definitions and uses alike.
	Names() []Name

	// Goto resolves a use to its target definitions. An empty result with a
	// nil error means the use is unresolved.
	Goto(ctx context.Context, use Name) ([]Name, error)
}
