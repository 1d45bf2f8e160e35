package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

func result(file string, defs []grapher.Def, refs []grapher.Ref) *grapher.Result {
	res := &grapher.Result{
		File: file,
		Defs: make(map[string]grapher.Def),
		Refs: make(map[grapher.RefKey]grapher.Ref),
	}
	for _, d := range defs {
		res.Defs[d.Path] = d
	}
	for _, r := range refs {
		res.Refs[r.Key()] = r
	}
	return res
}

func TestWriteJSON(t *testing.T) {
	a := result("a.py",
		[]grapher.Def{
			{Path: "a/os", Kind: grapher.KindImport, Name: "os", File: "a.py", DefStart: 7, DefEnd: 9, Exported: true},
			{Path: "a", Kind: grapher.KindModule, Name: "a", File: "a.py", Exported: true},
		},
		[]grapher.Ref{
			{DefPath: "len", File: "a.py", Start: 20, End: 23, ToBuiltin: true},
			{DefPath: "a/os", DefFile: "/p/a.py", Def: true, File: "a.py", Start: 7, End: 9},
		})
	b := result("b.py",
		[]grapher.Def{{Path: "b", Kind: grapher.KindModule, Name: "b", File: "b.py", Exported: true}},
		[]grapher.Ref{{DefPath: "a/os", DefFile: "/p/a.py", File: "b.py", Start: 0, End: 2}})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, b, a))

	var got struct {
		Defs []map[string]any
		Refs []map[string]any
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got.Defs, 3)
	assert.Equal(t, "a", got.Defs[0]["Path"])
	assert.Equal(t, "a/os", got.Defs[1]["Path"])
	assert.Equal(t, "b", got.Defs[2]["Path"])
	assert.EqualValues(t, 7, got.Defs[1]["DefStart"])
	assert.Contains(t, got.Defs[1], "Docstring")

	require.Len(t, got.Refs, 3)
	assert.Equal(t, "a/os", got.Refs[0]["DefPath"])
	assert.Equal(t, true, got.Refs[0]["Def"])
	assert.Equal(t, "len", got.Refs[1]["DefPath"])
	assert.Equal(t, "", got.Refs[1]["DefFile"])
	assert.Equal(t, "b.py", got.Refs[2]["File"])
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf))
	assert.JSONEq(t, `{"Defs": [], "Refs": []}`, buf.String())
}

func TestNewGraphExport_FirstDefWins(t *testing.T) {
	first := result("a.py", []grapher.Def{{Path: "x", Name: "x", File: "a.py"}}, nil)
	second := result("b.py", []grapher.Def{{Path: "x", Name: "x", File: "b.py"}}, nil)

	out := NewGraphExport(first, second)
	require.Len(t, out.Defs, 1)
	assert.Equal(t, "a.py", out.Defs[0].File)
}

func TestGenerateMermaid(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	files := []string{"pkg/a.py", "pkg/b.py", "lone/c.py"}
	for _, f := range files {
		require.NoError(t, store.AddFile(ctx, graph.FileNode{Path: f, Module: grapher.ModulePath(f)}))
	}
	require.NoError(t, store.AddEdge(ctx, graph.Edge{SourceID: "pkg/a.py", TargetID: "pkg/b.py", Kind: graph.EdgeKindDependsOn}))
	_, err := graph.ComputeClusters(ctx, store, files)
	require.NoError(t, err)

	out, err := GenerateMermaid(ctx, store)
	require.NoError(t, err)

	assert.Equal(t, `graph TD
  subgraph N0["pkg"]
    N1["pkg/a.py"]
    N2["pkg/b.py"]
  end
  N1 --> N2
`, out)
}

func TestGenerateMermaid_UnclusteredNodes(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	require.NoError(t, store.AddEdge(ctx, graph.Edge{SourceID: "x/y/a.py", TargetID: "b.py", Kind: graph.EdgeKindDependsOn}))

	out, err := GenerateMermaid(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, `graph TD
  N0["y/a.py"]
  N1["b.py"]
  N0 --> N1
`, out)
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "a.py", shortPath("a.py"))
	assert.Equal(t, "pkg/a.py", shortPath("pkg/a.py"))
	assert.Equal(t, "sub/a.py", shortPath("src/pkg/sub/a.py"))
}
