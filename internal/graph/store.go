// Package graph assembles per-file grapher results into a project graph and
// persists it behind the Store interface.
package graph

import (
	"context"
	"io"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// Store is the interface for the project graph backend.
// Implementations: MemStore (default, tests), KuzuStore and SQLiteStore
// (persistent, cgo).
type Store interface {
	io.Closer

	// Schema setup. Called once before any data is inserted; idempotent.
	InitSchema(ctx context.Context) error

	// Write operations. AddDef and AddRef keep the first record written for
	// a key, like grapher.Result.
	AddFile(ctx context.Context, node FileNode) error
	AddDef(ctx context.Context, def grapher.Def) error
	AddRef(ctx context.Context, ref grapher.Ref) error
	AddCluster(ctx context.Context, node ClusterNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. Lookups of missing keys return nil, nil.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	GetDef(ctx context.Context, path string) (*grapher.Def, error)
	QueryDefs(ctx context.Context, query, kind string, limit int) ([]grapher.Def, error)
	FindRefs(ctx context.Context, defPath string) ([]grapher.Ref, error)

	// Graph traversal over DEPENDS_ON edges.
	GetDependencies(ctx context.Context, file string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error)
	GetClusters(ctx context.Context) ([]ClusterNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this depend on?
	DirectionDownstream Direction = "downstream" // what depends on this?
)

// ParseDirection maps user input to a Direction, defaulting to upstream.
func ParseDirection(s string) Direction {
	if Direction(s) == DirectionDownstream {
		return DirectionDownstream
	}
	return DirectionUpstream
}
