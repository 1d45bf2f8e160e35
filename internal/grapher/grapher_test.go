package grapher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Fake oracle
// ---------------------------------------------------------------------------

type gotoResult struct {
	targets []Name
	err     error
}

// fakeOracle serves canned names; Goto answers are keyed by "line:column".
type fakeOracle struct {
	names    []Name
	gotos    map[string]gotoResult
	parseErr error
}

func (o *fakeOracle) Parse(_ context.Context, _ string, _ []byte) (Script, error) {
	if o.parseErr != nil {
		return nil, o.parseErr
	}
	return o, nil
}

func (o *fakeOracle) Names() []Name {
	return o.names
}

func (o *fakeOracle) Goto(_ context.Context, use Name) ([]Name, error) {
	r := o.gotos[fmt.Sprintf("%d:%d", use.Line, use.Column)]
	return r.targets, r.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestGrapher(t *testing.T, rel, source string, oracle Oracle, opts ...Option) (*FileGrapher, string) {
	t.Helper()
	root := t.TempDir()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	opts = append([]Option{WithSource([]byte(source)), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	g, err := New(root, abs, oracle, opts...)
	require.NoError(t, err)
	return g, abs
}

func refsByDef(res *Result, def bool) []Ref {
	var out []Ref
	for _, r := range res.Refs {
		if r.Def == def {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGraph_ImportOnlyFile(t *testing.T) {
	src := "import os\n\ndef f():\n    pass\n"
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "a.py", src, oracle)
	oracle.names = []Name{
		{Name: "os", Kind: KindImport, Line: 1, Column: 7, FullName: "a.os", ScopeName: "a", ModulePath: abs, Definition: true},
		{Name: "f", Kind: KindFunction, Line: 3, Column: 4, FullName: "a.f", ScopeName: "a", ModulePath: abs, Definition: true, Docstring: "doc"},
	}

	res, err := g.Graph(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Defs, 2, "module def plus the import def")

	mod, ok := res.Defs["a"]
	require.True(t, ok)
	assert.Equal(t, KindModule, mod.Kind)
	assert.Equal(t, "a", mod.Name)
	assert.Equal(t, "a.py", mod.File)
	assert.Equal(t, 0, mod.DefStart)
	assert.Equal(t, 0, mod.DefEnd)
	assert.True(t, mod.Exported)

	osDef, ok := res.Defs["a/os"]
	require.True(t, ok)
	assert.Equal(t, KindImport, osDef.Kind)
	assert.Equal(t, "os", osDef.Name)
	assert.Equal(t, 7, osDef.DefStart)
	assert.Equal(t, 9, osDef.DefEnd)
	assert.True(t, osDef.Exported)
	assert.Nil(t, osDef.Data)

	_, ok = res.Defs["a/f"]
	assert.False(t, ok, "functions are not emitted as standalone defs")

	self := refsByDef(res, true)
	require.Len(t, self, 1, "one self-reference, none for the module def")
	assert.Equal(t, Ref{
		DefPath: "a/os",
		DefFile: abs,
		Def:     true,
		File:    "a.py",
		Start:   7,
		End:     9,
	}, self[0])
}

func TestGraph_PackageInitializerModuleDef(t *testing.T) {
	g, _ := newTestGrapher(t, "pkg/sub/__init__.py", "", &fakeOracle{})

	res, err := g.Graph(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Defs, 1)

	mod := res.Defs["pkg/sub"]
	assert.Equal(t, "sub", mod.Name)
	assert.Equal(t, KindModule, mod.Kind)
	assert.Equal(t, "pkg/sub/__init__.py", mod.File)
	assert.Empty(t, res.Refs)
}

func TestGraph_References(t *testing.T) {
	src := "import os\nos.path\nlen(x)\n"
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "pkg/m.py", src, oracle)

	osImport := Name{Name: "os", Kind: KindImport, Line: 1, Column: 7, FullName: "m.os", ScopeName: "m", ModulePath: abs, Definition: true}
	oracle.names = []Name{
		osImport,
		{Name: "os", Kind: KindStatement, Line: 2, Column: 0},
		{Name: "path", Kind: KindStatement, Line: 2, Column: 3},
		{Name: "len", Kind: KindStatement, Line: 3, Column: 0},
		{Name: "x", Kind: KindStatement, Line: 3, Column: 4},
	}
	oracle.gotos = map[string]gotoResult{
		"2:0": {targets: []Name{osImport}},
		"2:3": {targets: []Name{{Name: "path", Kind: KindModule, FullName: "path", ModulePath: "/usr/lib/python3.11/os/path.py"}}},
		"3:0": {targets: []Name{{Name: "len", Kind: KindFunction, FullName: "len", Builtin: true}}},
		// 3:4 is unresolved.
	}

	res, err := g.Graph(context.Background())
	require.NoError(t, err)

	uses := refsByDef(res, false)
	require.Len(t, uses, 3)

	byStart := make(map[int]Ref, len(uses))
	for _, r := range uses {
		byStart[r.Start] = r
	}

	osRef := byStart[10]
	assert.Equal(t, "pkg/m/os", osRef.DefPath)
	assert.Equal(t, abs, osRef.DefFile)
	assert.Equal(t, 12, osRef.End)
	assert.Equal(t, "pkg/m.py", osRef.File)
	assert.False(t, osRef.ToBuiltin)

	_, hasDef := res.Defs[osRef.DefPath]
	assert.True(t, hasDef, "reference paths match definition paths")

	pathRef := byStart[13]
	assert.Equal(t, "os/path", pathRef.DefPath)
	assert.Equal(t, "/usr/lib/python3.11/os/path.py", pathRef.DefFile)

	lenRef := byStart[18]
	assert.Equal(t, "len", lenRef.DefPath)
	assert.True(t, lenRef.ToBuiltin)
	assert.Equal(t, 21, lenRef.End)
}

func TestGraph_FirstTargetWins(t *testing.T) {
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "a.py", "x = 1\nx = 2\nx\n", oracle)
	oracle.names = []Name{{Name: "x", Kind: KindStatement, Line: 3, Column: 0}}
	oracle.gotos = map[string]gotoResult{
		"3:0": {targets: []Name{
			{Name: "x", Kind: KindStatement, Line: 2, ScopeName: "a", ModulePath: abs},
			{Name: "y", Kind: KindStatement, Line: 1, ScopeName: "a", ModulePath: abs},
		}},
	}

	res, err := g.Graph(context.Background())
	require.NoError(t, err)
	uses := refsByDef(res, false)
	require.Len(t, uses, 1)
	assert.Equal(t, "a/x", uses[0].DefPath)
}

func TestGraph_DeduplicatesDefsAndRefs(t *testing.T) {
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "a.py", "import os\nimport os\nos\n", oracle)
	imp := func(line int) Name {
		return Name{Name: "os", Kind: KindImport, Line: line, Column: 7, FullName: "a.os", ScopeName: "a", ModulePath: abs, Definition: true}
	}
	use := Name{Name: "os", Kind: KindStatement, Line: 3, Column: 0}
	oracle.names = []Name{imp(1), imp(2), use, use}
	oracle.gotos = map[string]gotoResult{"3:0": {targets: []Name{imp(1)}}}

	res, err := g.Graph(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Defs, 2)
	assert.Equal(t, 7, res.Defs["a/os"].DefStart, "first definition wins")

	self := refsByDef(res, true)
	require.Len(t, self, 1, "the dropped duplicate def gets no self-reference")
	assert.Len(t, refsByDef(res, false), 1, "identical edges collapse")

	for key, r := range res.Refs {
		assert.Equal(t, key, r.Key())
	}
}

func TestGraph_ResolutionFailureIsLoggedAndSkipped(t *testing.T) {
	var logs bytes.Buffer
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "a.py", "import os\nbroken_name_with_a_rather_long_identifier_here\nos\n", oracle,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	imp := Name{Name: "os", Kind: KindImport, Line: 1, Column: 7, FullName: "a.os", ScopeName: "a", ModulePath: abs, Definition: true}
	oracle.names = []Name{
		imp,
		{Name: "broken_name_with_a_rather_long_identifier_here", Kind: KindStatement, Line: 2, Column: 0},
		{Name: "os", Kind: KindStatement, Line: 3, Column: 0},
	}
	oracle.gotos = map[string]gotoResult{
		"2:0": {err: errors.New("internal oracle error")},
		"3:0": {targets: []Name{imp}},
	}

	res, err := g.Graph(context.Background())
	require.NoError(t, err)

	uses := refsByDef(res, false)
	require.Len(t, uses, 1, "the failing reference is dropped, the rest continue")
	assert.Equal(t, "a/os", uses[0].DefPath)

	out := logs.String()
	assert.Contains(t, out, "error getting definitions for reference")
	assert.Contains(t, out, "level=ERROR")
	assert.NotContains(t, out, "identifier_here", "the excerpt is truncated")
}

func TestGraph_ParseFailure(t *testing.T) {
	g, abs := newTestGrapher(t, "a.py", "def (:\n", &fakeOracle{parseErr: errors.New("invalid syntax")})

	res, err := g.Graph(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrParse)

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, abs, fe.Path)
	assert.Contains(t, err.Error(), "invalid syntax")
}

func TestGraph_ParseCancelledKeepsCause(t *testing.T) {
	g, _ := newTestGrapher(t, "a.py", "import os\n", &fakeOracle{parseErr: context.Canceled})

	_, err := g.Graph(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "abc", excerpt("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := excerpt("aéb", 2)
	assert.Equal(t, "a", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("日", 20)
	got = excerpt(long, refExcerptLen)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), refExcerptLen)
	assert.Equal(t, strings.Repeat("日", 16), got)
}

func TestGraph_UnresolvableOwnPath(t *testing.T) {
	root := t.TempDir()
	g, err := New(root, "/nowhere/lib/mod.py", &fakeOracle{}, WithSource([]byte("x = 1\n")))
	require.NoError(t, err)

	res, err := g.Graph(context.Background())
	assert.Nil(t, res, "no partial result")
	assert.ErrorIs(t, err, ErrUnresolvablePath)
}

func TestGraph_UnresolvableTargetPathIsFatal(t *testing.T) {
	oracle := &fakeOracle{}
	g, _ := newTestGrapher(t, "a.py", "thing\n", oracle)
	oracle.names = []Name{{Name: "thing", Kind: KindStatement, Line: 1, Column: 0}}
	oracle.gotos = map[string]gotoResult{
		"1:0": {targets: []Name{{Name: "thing", Kind: KindFunction, FullName: "lib.thing", ModulePath: "/opt/vendor/lib.py"}}},
	}

	_, err := g.Graph(context.Background())
	assert.ErrorIs(t, err, ErrUnresolvablePath)
}

func TestGraph_OutOfBoundsIsFatal(t *testing.T) {
	oracle := &fakeOracle{}
	g, abs := newTestGrapher(t, "a.py", "import os\n", oracle)
	oracle.names = []Name{
		{Name: "os", Kind: KindImport, Line: 40, Column: 7, FullName: "a.os", ScopeName: "a", ModulePath: abs, Definition: true},
	}

	_, err := g.Graph(context.Background())
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGraph_ReadsSourceFromDisk(t *testing.T) {
	root := t.TempDir()
	g, err := New(root, filepath.Join(root, "missing.py"), &fakeOracle{})
	require.NoError(t, err)

	_, err = g.Graph(context.Background())
	require.Error(t, err)
	var fe *FileError
	assert.True(t, errors.As(err, &fe))
}
