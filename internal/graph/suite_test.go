package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// runStoreSuite exercises the Store contract shared by every backend.
// newStore must return an empty store with its schema initialized.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("InitSchemaIdempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InitSchema(context.Background()))
	})

	t.Run("FileRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		file := FileNode{Path: "pkg/mod.py", Module: "pkg/mod", DefCount: 3, RefCount: 7}
		require.NoError(t, s.AddFile(ctx, file))

		got, err := s.GetFile(ctx, file.Path)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, file, *got)

		missing, err := s.GetFile(ctx, "nope.py")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("DefFirstWriteWins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := grapher.Def{
			Path: "a/os", Kind: grapher.KindImport, Name: "os", File: "a.py",
			DefStart: 7, DefEnd: 9, Exported: true, Docstring: "doc",
		}
		require.NoError(t, s.AddDef(ctx, first))
		require.NoError(t, s.AddDef(ctx, grapher.Def{Path: "a/os", Kind: grapher.KindImport, Name: "os", File: "b.py"}))

		got, err := s.GetDef(ctx, "a/os")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first, *got)

		missing, err := s.GetDef(ctx, "a/sys")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("QueryDefs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, d := range []grapher.Def{
			{Path: "pkg/util", Kind: grapher.KindModule, Name: "util", File: "pkg/util.py"},
			{Path: "pkg/util/os", Kind: grapher.KindImport, Name: "os", File: "pkg/util.py"},
			{Path: "app/Util", Kind: grapher.KindImport, Name: "Util", File: "app.py"},
			{Path: "app", Kind: grapher.KindModule, Name: "app", File: "app.py"},
		} {
			require.NoError(t, s.AddDef(ctx, d))
		}

		all, err := s.QueryDefs(ctx, "util", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/Util", "pkg/util", "pkg/util/os"}, defPaths(all))

		imports, err := s.QueryDefs(ctx, "util", grapher.KindImport, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/Util", "pkg/util/os"}, defPaths(imports))

		limited, err := s.QueryDefs(ctx, "", "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "app/Util"}, defPaths(limited))
	})

	t.Run("RefsDedupAndOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		refs := []grapher.Ref{
			{DefPath: "pkg/util/helper", DefFile: "/p/pkg/util.py", File: "b.py", Start: 4, End: 10},
			{DefPath: "pkg/util/helper", DefFile: "/p/pkg/util.py", File: "a.py", Start: 20, End: 26},
			{DefPath: "pkg/util/helper", DefFile: "/p/pkg/util.py", File: "a.py", Start: 2, End: 8},
			{DefPath: "pkg/util/helper", DefFile: "/p/pkg/util.py", File: "a.py", Start: 2, End: 8, ToBuiltin: true},
			{DefPath: "len", File: "a.py", Start: 30, End: 33, ToBuiltin: true},
		}
		for _, r := range refs {
			require.NoError(t, s.AddRef(ctx, r))
		}

		got, err := s.FindRefs(ctx, "pkg/util/helper")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, refs[2], got[0])
		assert.Equal(t, refs[1], got[1])
		assert.Equal(t, refs[0], got[2])

		builtin, err := s.FindRefs(ctx, "len")
		require.NoError(t, err)
		require.Len(t, builtin, 1)
		assert.True(t, builtin[0].ToBuiltin)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.RefCount)
	})

	t.Run("Dependencies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		addChain(t, s)

		up, err := s.GetDependencies(ctx, "a.py", DirectionUpstream, 5)
		require.NoError(t, err)
		require.Len(t, up, 2)
		assert.Equal(t, []string{"a.py", "b.py"}, up[0].Nodes)
		assert.Equal(t, 1, up[0].Depth)
		assert.Equal(t, []string{"a.py", "b.py", "c.py"}, up[1].Nodes)
		assert.Equal(t, 2, up[1].Depth)

		down, err := s.GetDependencies(ctx, "c.py", DirectionDownstream, 1)
		require.NoError(t, err)
		require.Len(t, down, 1)
		assert.Equal(t, []string{"c.py", "b.py"}, down[0].Nodes)
	})

	t.Run("AssessImpact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		addChain(t, s)

		impact, err := s.AssessImpact(ctx, []string{"c.py"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.py"}, impact.DirectlyAffected)
		assert.Equal(t, []string{"a.py", "b.py"}, impact.TransitivelyAffected)
		assert.InDelta(t, 2.0/3.0, impact.RiskScore, 1e-9)

		none, err := s.AssessImpact(ctx, []string{"a.py"})
		require.NoError(t, err)
		assert.Empty(t, none.DirectlyAffected)
		assert.Empty(t, none.TransitivelyAffected)
	})

	t.Run("EdgesDedup", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := Edge{SourceID: "a.py", TargetID: "b.py", Kind: EdgeKindDependsOn}
		require.NoError(t, s.AddEdge(ctx, e))
		require.NoError(t, s.AddEdge(ctx, e))

		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Edge{e}, edges)

		// Endpoints become known files.
		f, err := s.GetFile(ctx, "b.py")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "b", f.Module)
	})

	t.Run("Clusters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		addChain(t, s)

		clusters, err := ComputeClusters(ctx, s, []string{"a.py", "b.py", "c.py"})
		require.NoError(t, err)
		require.Len(t, clusters, 1)

		stored, err := s.GetClusters(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, ".", stored[0].Name)
		assert.Equal(t, []string{"a.py", "b.py", "c.py"}, stored[0].Members)
		assert.InDelta(t, 2.0/3.0, stored[0].CohesionScore, 1e-9)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ClusterCount)
		assert.Equal(t, 5, stats.EdgeCount)
	})

	t.Run("Load", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		root := filepath.FromSlash("/proj")
		res := &grapher.Result{
			File: "app/main.py",
			Defs: map[string]grapher.Def{
				"app/main":    {Path: "app/main", Kind: grapher.KindModule, Name: "main", File: "app/main.py", Exported: true},
				"app/main/os": {Path: "app/main/os", Kind: grapher.KindImport, Name: "os", File: "app/main.py", DefStart: 7, DefEnd: 9, Exported: true},
			},
			Refs: map[grapher.RefKey]grapher.Ref{},
		}
		for _, r := range []grapher.Ref{
			{DefPath: "app/main/os", DefFile: filepath.Join(root, "app", "main.py"), Def: true, File: "app/main.py", Start: 7, End: 9},
			{DefPath: "app/util/helper", DefFile: filepath.Join(root, "app", "util.py"), File: "app/main.py", Start: 30, End: 36},
			{DefPath: "app/util/Box", DefFile: filepath.Join(root, "app", "util.py"), File: "app/main.py", Start: 40, End: 43},
			{DefPath: "requests/get", DefFile: filepath.FromSlash("/venv/site-packages/requests/__init__.py"), File: "app/main.py", Start: 50, End: 53},
			{DefPath: "len", File: "app/main.py", Start: 60, End: 63, ToBuiltin: true},
		} {
			res.Refs[r.Key()] = r
		}

		require.NoError(t, Load(ctx, s, root, res))

		f, err := s.GetFile(ctx, "app/main.py")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, FileNode{Path: "app/main.py", Module: "app/main", DefCount: 2, RefCount: 5}, *f)

		def, err := s.GetDef(ctx, "app/main/os")
		require.NoError(t, err)
		require.NotNil(t, def)

		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Edge{{SourceID: "app/main.py", TargetID: "app/util.py", Kind: EdgeKindDependsOn}}, edges)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.FileCount)
		assert.Equal(t, 2, stats.DefCount)
		assert.Equal(t, 5, stats.RefCount)
	})
}

// addChain stores a.py -> b.py -> c.py.
func addChain(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, f := range []string{"a.py", "b.py", "c.py"} {
		require.NoError(t, s.AddFile(ctx, FileNode{Path: f, Module: grapher.ModulePath(f)}))
	}
	require.NoError(t, s.AddEdge(ctx, Edge{SourceID: "a.py", TargetID: "b.py", Kind: EdgeKindDependsOn}))
	require.NoError(t, s.AddEdge(ctx, Edge{SourceID: "b.py", TargetID: "c.py", Kind: EdgeKindDependsOn}))
}

func defPaths(defs []grapher.Def) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Path
	}
	return out
}
