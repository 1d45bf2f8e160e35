package mcptools

import (
	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/index"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// GraphFileInput is the input for the graph_file MCP tool.
type GraphFileInput struct {
	File string `json:"file" jsonschema:"path of the Python file to graph"`
	Root string `json:"root,omitempty" jsonschema:"project root the file belongs to (default: the file's directory)"`
}

// GraphFileOutput is the result of the graph_file MCP tool.
type GraphFileOutput struct {
	File string        `json:"file"`
	Defs []grapher.Def `json:"Defs"`
	Refs []grapher.Ref `json:"Refs"`
}

// IndexProjectInput is the input for the index_project MCP tool.
type IndexProjectInput struct {
	Root        string   `json:"root" jsonschema:"the absolute path to the Python project to index"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directory names to exclude from indexing (e.g. vendor, build)"`
	Workers     int      `json:"workers,omitempty" jsonschema:"number of files graphed concurrently (default: GOMAXPROCS)"`
}

// IndexProjectOutput is the result of the index_project MCP tool.
type IndexProjectOutput struct {
	Stats    graph.GraphStats `json:"stats"`
	Files    int              `json:"files"`
	Clusters int              `json:"clusters"`
	Failed   []index.Failure  `json:"failed"`
}

// QueryDefsInput is the input for the query_defs MCP tool.
type QueryDefsInput struct {
	Query string `json:"query" jsonschema:"substring of the definition path, case-insensitive"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by definition kind, e.g. import or module"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryDefsOutput is the result of the query_defs MCP tool.
type QueryDefsOutput struct {
	Defs  []grapher.Def `json:"defs"`
	Total int           `json:"total"`
}

// FindRefsInput is the input for the find_refs MCP tool.
type FindRefsInput struct {
	DefPath string `json:"defPath" jsonschema:"path of the definition, e.g. pkg/mod/name"`
}

// FindRefsOutput is the result of the find_refs MCP tool.
type FindRefsOutput struct {
	Refs  []grapher.Ref `json:"refs"`
	Total int           `json:"total"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	File      string `json:"file" jsonschema:"project-relative file path"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it depends on) or downstream (what depends on it). Default: upstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	ChangedFiles []string `json:"changedFiles" jsonschema:"list of project-relative file paths that will be modified"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.ClusterNode `json:"clusters"`
}

// GetDiagramInput is the input for the get_diagram MCP tool.
type GetDiagramInput struct{}

// GetDiagramOutput is the result of the get_diagram MCP tool.
type GetDiagramOutput struct {
	Mermaid string `json:"mermaid"`
}

func newGraphFileOutput(res *grapher.Result) GraphFileOutput {
	exp := export.NewGraphExport(res)
	return GraphFileOutput{File: res.File, Defs: exp.Defs, Refs: exp.Refs}
}
