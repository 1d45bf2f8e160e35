package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/index"
	"github.com/dusk-indust/pygraph/internal/pyoracle"
)

// ServiceOptions configures how files are graphed.
type ServiceOptions struct {
	SearchPaths    []string
	ExcludeDirs    []string
	PackageMarkers []string
	RuntimePrefix  string
	Workers        int
	Logger         *slog.Logger
}

// CodeIntelService holds the graph store used by MCP tool handlers.
type CodeIntelService struct {
	store graph.Store
	opts  ServiceOptions
	mu    sync.Mutex // serializes index runs
}

// NewCodeIntelService creates a CodeIntelService over store.
func NewCodeIntelService(store graph.Store, opts ServiceOptions) *CodeIntelService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CodeIntelService{store: store, opts: opts}
}

// newOracle builds an oracle and canonicalizer for the project at root.
func (s *CodeIntelService) newOracle(root string) (*pyoracle.Oracle, *grapher.Canonicalizer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	oracle, err := pyoracle.New(absRoot, pyoracle.WithSearchPaths(s.opts.SearchPaths...))
	if err != nil {
		return nil, nil, fmt.Errorf("create oracle: %w", err)
	}
	return oracle, grapher.NewCanonicalizer(absRoot, s.opts.PackageMarkers, s.opts.RuntimePrefix), nil
}

// GraphFile graphs one Python file and returns its definitions and
// references. Nothing is written to the store.
func (s *CodeIntelService) GraphFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GraphFileInput,
) (*mcp.CallToolResult, GraphFileOutput, error) {
	if input.File == "" {
		return nil, GraphFileOutput{}, fmt.Errorf("file is required")
	}
	root := input.Root
	if root == "" {
		root = filepath.Dir(input.File)
	}

	oracle, canon, err := s.newOracle(root)
	if err != nil {
		return nil, GraphFileOutput{}, err
	}
	res, err := index.GraphFile(ctx, oracle, root, input.File, index.Options{
		Canonicalizer: canon,
		Logger:        s.opts.Logger,
	})
	if err != nil {
		return nil, GraphFileOutput{}, err
	}
	return nil, newGraphFileOutput(res), nil
}

// IndexProject graphs every Python file under a project root into the store
// and computes clusters. Files that fail are reported, not fatal.
func (s *CodeIntelService) IndexProject(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexProjectInput,
) (*mcp.CallToolResult, IndexProjectOutput, error) {
	if input.Root == "" {
		return nil, IndexProjectOutput{}, fmt.Errorf("root is required")
	}
	info, err := os.Stat(input.Root)
	if err != nil {
		return nil, IndexProjectOutput{}, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, IndexProjectOutput{}, fmt.Errorf("root is not a directory: %s", input.Root)
	}

	oracle, canon, err := s.newOracle(input.Root)
	if err != nil {
		return nil, IndexProjectOutput{}, err
	}
	workers := input.Workers
	if workers <= 0 {
		workers = s.opts.Workers
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report, err := index.Run(ctx, s.store, oracle, input.Root, index.Options{
		ExcludeDirs:   append(append([]string(nil), s.opts.ExcludeDirs...), input.ExcludeDirs...),
		Workers:       workers,
		Canonicalizer: canon,
		Logger:        s.opts.Logger,
	})
	if err != nil {
		return nil, IndexProjectOutput{}, fmt.Errorf("index: %w", err)
	}

	failed := report.Failed
	if failed == nil {
		failed = []index.Failure{}
	}
	return nil, IndexProjectOutput{
		Stats:    report.Stats,
		Files:    len(report.Files),
		Clusters: report.Clusters,
		Failed:   failed,
	}, nil
}

// QueryDefs searches definitions by path substring.
func (s *CodeIntelService) QueryDefs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryDefsInput,
) (*mcp.CallToolResult, QueryDefsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	defs, err := s.store.QueryDefs(ctx, input.Query, input.Kind, limit)
	if err != nil {
		return nil, QueryDefsOutput{}, fmt.Errorf("query defs: %w", err)
	}
	if defs == nil {
		defs = []grapher.Def{}
	}
	return nil, QueryDefsOutput{Defs: defs, Total: len(defs)}, nil
}

// FindRefs lists every reference to a definition path.
func (s *CodeIntelService) FindRefs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindRefsInput,
) (*mcp.CallToolResult, FindRefsOutput, error) {
	if input.DefPath == "" {
		return nil, FindRefsOutput{}, fmt.Errorf("defPath is required")
	}

	refs, err := s.store.FindRefs(ctx, input.DefPath)
	if err != nil {
		return nil, FindRefsOutput{}, fmt.Errorf("find refs: %w", err)
	}
	if refs == nil {
		refs = []grapher.Ref{}
	}
	return nil, FindRefsOutput{Refs: refs, Total: len(refs)}, nil
}

// GetDependencies traverses the file dependency graph from a given file.
func (s *CodeIntelService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.File == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("file is required")
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	chains, err := s.store.GetDependencies(ctx, input.File, graph.ParseDirection(input.Direction), maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact computes the blast radius of modifying a set of files.
func (s *CodeIntelService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.ChangedFiles) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("changedFiles is required")
	}

	impact, err := s.store.AssessImpact(ctx, input.ChangedFiles)
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}

	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// GetClusters returns all file clusters in the graph.
func (s *CodeIntelService) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	clusters, err := s.store.GetClusters(ctx)
	if err != nil {
		return nil, GetClustersOutput{}, fmt.Errorf("get clusters: %w", err)
	}
	if clusters == nil {
		clusters = []graph.ClusterNode{}
	}
	return nil, GetClustersOutput{Clusters: clusters}, nil
}

// GetDiagram renders the dependency graph as Mermaid.
func (s *CodeIntelService) GetDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetDiagramInput,
) (*mcp.CallToolResult, GetDiagramOutput, error) {
	out, err := export.GenerateMermaid(ctx, s.store)
	if err != nil {
		return nil, GetDiagramOutput{}, err
	}
	return nil, GetDiagramOutput{Mermaid: out}, nil
}
