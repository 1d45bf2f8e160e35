package graph

// --- Enums ---

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	// EdgeKindDependsOn links a file to a project file defining a symbol it
	// references.
	EdgeKindDependsOn EdgeKind = "DEPENDS_ON"
	// EdgeKindBelongs links a file to its cluster.
	EdgeKindBelongs EdgeKind = "BELONGS"
)

// --- Models ---

// FileNode represents a graphed source file.
type FileNode struct {
	Path     string `json:"path"`
	Module   string `json:"module"`
	DefCount int    `json:"defCount"`
	RefCount int    `json:"refCount"`
}

// ClusterNode represents a group of tightly connected files.
type ClusterNode struct {
	Name          string   `json:"name"`
	CohesionScore float64  `json:"cohesionScore"`
	Members       []string `json:"members"` // file paths
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored graph.
type GraphStats struct {
	FileCount    int `json:"fileCount"`
	DefCount     int `json:"defCount"`
	RefCount     int `json:"refCount"`
	ClusterCount int `json:"clusterCount"`
	EdgeCount    int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of files forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // file paths in order
	Depth int      `json:"depth"`
}

// ImpactResult describes the blast radius of changing a set of files.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`     // files that depend on changed files
	TransitivelyAffected []string `json:"transitivelyAffected"` // full downstream closure
	RiskScore            float64  `json:"riskScore"`            // affected share of all files
}
