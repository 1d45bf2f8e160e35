package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// Load writes one file's Result into store: the file node, its defs and
// refs in a stable order, and one DEPENDS_ON edge per distinct project file
// it references. root is the project root the Result was graphed against.
func Load(ctx context.Context, store Store, root string, res *grapher.Result) error {
	if err := store.AddFile(ctx, FileNode{
		Path:     res.File,
		Module:   grapher.ModulePath(res.File),
		DefCount: len(res.Defs),
		RefCount: len(res.Refs),
	}); err != nil {
		return fmt.Errorf("add file %s: %w", res.File, err)
	}

	for _, d := range SortedDefs(res) {
		if err := store.AddDef(ctx, d); err != nil {
			return fmt.Errorf("add def %s: %w", d.Path, err)
		}
	}

	refs := SortedRefs(res)
	deps := make(map[string]bool)
	for _, r := range refs {
		if err := store.AddRef(ctx, r); err != nil {
			return fmt.Errorf("add ref %s: %w", r.DefPath, err)
		}
		if dep, ok := projectFile(root, r.DefFile); ok && dep != res.File {
			deps[dep] = true
		}
	}

	targets := make([]string, 0, len(deps))
	for dep := range deps {
		targets = append(targets, dep)
	}
	sort.Strings(targets)
	for _, dep := range targets {
		if err := store.AddEdge(ctx, Edge{SourceID: res.File, TargetID: dep, Kind: EdgeKindDependsOn}); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", res.File, dep, err)
		}
	}
	return nil
}

// projectFile returns the slash-separated project-relative path of a
// definition's Python file, if it lies inside root.
func projectFile(root, defFile string) (string, bool) {
	if defFile == "" || filepath.Ext(defFile) != ".py" {
		return "", false
	}
	rel, err := filepath.Rel(root, defFile)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}

// SortedDefs returns the Result's definitions ordered by Path.
func SortedDefs(res *grapher.Result) []grapher.Def {
	out := make([]grapher.Def, 0, len(res.Defs))
	for _, d := range res.Defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SortedRefs returns the Result's references in SortRefs order.
func SortedRefs(res *grapher.Result) []grapher.Ref {
	out := make([]grapher.Ref, 0, len(res.Refs))
	for _, r := range res.Refs {
		out = append(out, r)
	}
	SortRefs(out)
	return out
}

// SortRefs orders refs by file, start, end, then DefPath.
func SortRefs(refs []grapher.Ref) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.DefPath != b.DefPath {
			return a.DefPath < b.DefPath
		}
		return a.DefFile < b.DefFile
	})
}

// newImpactResult builds an ImpactResult from affected sets.
func newImpactResult(direct, transitive map[string]bool, totalFiles int) *ImpactResult {
	res := &ImpactResult{
		DirectlyAffected:     setToSlice(direct),
		TransitivelyAffected: setToSlice(transitive),
	}
	if totalFiles > 0 {
		res.RiskScore = float64(len(res.TransitivelyAffected)) / float64(totalFiles)
		if res.RiskScore > 1 {
			res.RiskScore = 1
		}
	}
	return res
}

// setToSlice converts a string bool map to a sorted slice.
func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// walkDependencies runs a BFS from file over the edges reported by
// neighbors, up to maxDepth hops. It returns one DependencyChain per
// reachable file, nearest first.
func walkDependencies(file string, maxDepth int, neighbors func(string) ([]string, error)) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{file: true}
	queue := []bfsEntry{{path: []string{file}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		nbs, err := neighbors(tip)
		if err != nil {
			return nil, err
		}
		for _, nb := range nbs {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// assessImpact derives an ImpactResult from downstream walks of each
// changed file. totalFiles bounds the walk depth.
func assessImpact(ctx context.Context, store Store, changedFiles []string, totalFiles int) (*ImpactResult, error) {
	changed := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changed[f] = true
	}
	direct := map[string]bool{}
	transitive := map[string]bool{}

	for _, f := range changedFiles {
		chains, err := store.GetDependencies(ctx, f, DirectionDownstream, totalFiles)
		if err != nil {
			return nil, err
		}
		for _, c := range chains {
			last := c.Nodes[len(c.Nodes)-1]
			if changed[last] {
				continue
			}
			if c.Depth == 1 {
				direct[last] = true
			}
			transitive[last] = true
		}
	}
	return newImpactResult(direct, transitive, totalFiles), nil
}
