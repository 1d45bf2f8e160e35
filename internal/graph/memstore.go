package graph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	files    map[string]FileNode
	defs     map[string]grapher.Def
	refs     map[grapher.RefKey]grapher.Ref
	refsTo   map[string][]grapher.RefKey // key: DefPath
	edges    []Edge
	edgeSet  map[Edge]bool
	clusters []ClusterNode
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:   make(map[string]FileNode),
		defs:    make(map[string]grapher.Def),
		refs:    make(map[grapher.RefKey]grapher.Ref),
		refsTo:  make(map[string][]grapher.RefKey),
		edgeSet: make(map[Edge]bool),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddFile stores a file node keyed by its path, replacing any placeholder
// created by AddEdge.
func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

// AddDef stores def unless its path is already present.
func (m *MemStore) AddDef(_ context.Context, def grapher.Def) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[def.Path]; !ok {
		m.defs[def.Path] = def
	}
	return nil
}

// AddRef stores ref unless an identical edge is already present.
func (m *MemStore) AddRef(_ context.Context, ref grapher.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ref.Key()
	if _, ok := m.refs[key]; ok {
		return nil
	}
	m.refs[key] = ref
	m.refsTo[ref.DefPath] = append(m.refsTo[ref.DefPath], key)
	return nil
}

// AddCluster appends a cluster to the internal slice.
func (m *MemStore) AddCluster(_ context.Context, node ClusterNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append(m.clusters, node)
	return nil
}

// AddEdge records edge once. DEPENDS_ON endpoints are registered as files.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edgeSet[edge] {
		return nil
	}
	m.edgeSet[edge] = true
	m.edges = append(m.edges, edge)
	if edge.Kind == EdgeKindDependsOn {
		for _, p := range []string{edge.SourceID, edge.TargetID} {
			if _, ok := m.files[p]; !ok {
				m.files[p] = FileNode{Path: p, Module: grapher.ModulePath(p)}
			}
		}
	}
	return nil
}

// GetFile returns the file node for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetDef returns the definition with the given path, or nil if not found.
func (m *MemStore) GetDef(_ context.Context, path string) (*grapher.Def, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[path]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// QueryDefs returns definitions whose path contains query (case-insensitive),
// optionally restricted to kind, ordered by path. A limit <= 0 returns all
// matches.
func (m *MemStore) QueryDefs(_ context.Context, query, kind string, limit int) ([]grapher.Def, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []grapher.Def
	for _, d := range m.defs {
		if kind != "" && d.Kind != kind {
			continue
		}
		if strings.Contains(strings.ToLower(d.Path), lowerQuery) {
			results = append(results, d)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FindRefs returns every reference to defPath ordered by file and offset.
func (m *MemStore) FindRefs(_ context.Context, defPath string) ([]grapher.Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := m.refsTo[defPath]
	out := make([]grapher.Ref, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.refs[k])
	}
	SortRefs(out)
	return out, nil
}

// GetDependencies performs a BFS on DEPENDS_ON edges from file in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable file.
func (m *MemStore) GetDependencies(_ context.Context, file string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return walkDependencies(file, maxDepth, func(tip string) ([]string, error) {
		return m.neighbors(tip, direction), nil
	})
}

// neighbors returns files one DEPENDS_ON hop from id, sorted.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		switch direction {
		case DirectionUpstream:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionDownstream:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	sort.Strings(result)
	return result
}

// AssessImpact computes the blast radius of changing the given files: the
// files that depend on them directly and transitively.
func (m *MemStore) AssessImpact(_ context.Context, changedFiles []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	changedSet := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changedSet[f] = true
	}

	// An edge A DEPENDS_ON B means changing B affects A.
	directSet := make(map[string]bool)
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		if changedSet[e.TargetID] && !changedSet[e.SourceID] {
			directSet[e.SourceID] = true
		}
	}

	allAffected := make(map[string]bool, len(directSet))
	frontier := make(map[string]bool, len(directSet))
	for k := range directSet {
		allAffected[k] = true
		frontier[k] = true
	}

	for len(frontier) > 0 {
		nextFrontier := make(map[string]bool)
		for _, e := range m.edges {
			if e.Kind != EdgeKindDependsOn {
				continue
			}
			if frontier[e.TargetID] && !changedSet[e.SourceID] && !allAffected[e.SourceID] {
				allAffected[e.SourceID] = true
				nextFrontier[e.SourceID] = true
			}
		}
		frontier = nextFrontier
	}

	return newImpactResult(directSet, allAffected, len(m.files)), nil
}

// GetClusters returns all stored clusters.
func (m *MemStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClusterNode, len(m.clusters))
	copy(out, m.clusters)
	return out, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount:    len(m.files),
		DefCount:     len(m.defs),
		RefCount:     len(m.refs),
		ClusterCount: len(m.clusters),
		EdgeCount:    len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
