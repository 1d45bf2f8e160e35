//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path, so an index survives across runs. KuzuDB creates the leaf
// itself; the parent directory is created here.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		path STRING,
		module STRING,
		def_count INT64,
		ref_count INT64,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Def(
		path STRING,
		kind STRING,
		name STRING,
		file STRING,
		def_start INT64,
		def_end INT64,
		exported BOOLEAN,
		docstring STRING,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Ref(
		id STRING,
		def_path STRING,
		def_file STRING,
		is_def BOOLEAN,
		file STRING,
		start_byte INT64,
		end_byte INT64,
		to_builtin BOOLEAN,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(
		name STRING,
		cohesion_score DOUBLE,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM File TO File)`,
	`CREATE REL TABLE IF NOT EXISTS BELONGS_TO(FROM File TO Cluster)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddFile upserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:File {path: $path})
		 ON CREATE SET f.module = $module, f.def_count = $defs, f.ref_count = $refs
		 ON MATCH SET f.module = $module, f.def_count = $defs, f.ref_count = $refs`,
		map[string]any{
			"path":   node.Path,
			"module": node.Module,
			"defs":   int64(node.DefCount),
			"refs":   int64(node.RefCount),
		},
	)
}

// AddDef inserts a Def node unless its path exists.
func (s *KuzuStore) AddDef(_ context.Context, def grapher.Def) error {
	return s.exec(
		`MERGE (d:Def {path: $path})
		 ON CREATE SET d.kind = $kind, d.name = $name, d.file = $file,
			d.def_start = $defStart, d.def_end = $defEnd,
			d.exported = $exported, d.docstring = $doc`,
		map[string]any{
			"path":     def.Path,
			"kind":     def.Kind,
			"name":     def.Name,
			"file":     def.File,
			"defStart": int64(def.DefStart),
			"defEnd":   int64(def.DefEnd),
			"exported": def.Exported,
			"doc":      def.Docstring,
		},
	)
}

// AddRef inserts a Ref node unless its key exists.
func (s *KuzuStore) AddRef(_ context.Context, ref grapher.Ref) error {
	return s.exec(
		`MERGE (r:Ref {id: $id})
		 ON CREATE SET r.def_path = $defPath, r.def_file = $defFile, r.is_def = $isDef,
			r.file = $file, r.start_byte = $startByte, r.end_byte = $endByte,
			r.to_builtin = $builtin`,
		map[string]any{
			"id":        refID(ref.Key()),
			"defPath":   ref.DefPath,
			"defFile":   ref.DefFile,
			"isDef":     ref.Def,
			"file":      ref.File,
			"startByte": int64(ref.Start),
			"endByte":   int64(ref.End),
			"builtin":   ref.ToBuiltin,
		},
	)
}

// AddCluster inserts a Cluster node.
func (s *KuzuStore) AddCluster(_ context.Context, node ClusterNode) error {
	return s.exec(
		`MERGE (c:Cluster {name: $name})
		 ON CREATE SET c.cohesion_score = $score
		 ON MATCH SET c.cohesion_score = $score`,
		map[string]any{
			"name":  node.Name,
			"score": node.CohesionScore,
		},
	)
}

// AddEdge inserts a relationship once. DEPENDS_ON creates missing File
// endpoints; BELONGS requires both nodes to exist.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	switch edge.Kind {
	case EdgeKindDependsOn:
		return s.exec(
			`MERGE (a:File {path: $src})
			 ON CREATE SET a.module = $srcModule, a.def_count = 0, a.ref_count = 0
			 MERGE (b:File {path: $dst})
			 ON CREATE SET b.module = $dstModule, b.def_count = 0, b.ref_count = 0
			 MERGE (a)-[:DEPENDS_ON]->(b)`,
			map[string]any{
				"src":       edge.SourceID,
				"dst":       edge.TargetID,
				"srcModule": grapher.ModulePath(edge.SourceID),
				"dstModule": grapher.ModulePath(edge.TargetID),
			},
		)
	case EdgeKindBelongs:
		return s.exec(
			`MATCH (a:File {path: $src}), (b:Cluster {name: $dst})
			 MERGE (a)-[:BELONGS_TO]->(b)`,
			map[string]any{"src": edge.SourceID, "dst": edge.TargetID},
		)
	default:
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
}

// ---------- Read operations ----------

// GetFile retrieves a single File node by path, or returns nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN f.path, f.module, f.def_count, f.ref_count",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &FileNode{
		Path:     toString(r[0]),
		Module:   toString(r[1]),
		DefCount: toInt(r[2]),
		RefCount: toInt(r[3]),
	}, nil
}

const kuzuDefColumns = "d.path, d.kind, d.name, d.file, d.def_start, d.def_end, d.exported, d.docstring"

// GetDef retrieves a Def node by path, or nil if not found.
func (s *KuzuStore) GetDef(_ context.Context, path string) (*grapher.Def, error) {
	rows, err := s.query(
		"MATCH (d:Def {path: $path}) RETURN "+kuzuDefColumns,
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	d := rowToDef(rows[0])
	return &d, nil
}

// QueryDefs returns definitions whose path contains the query string,
// case-insensitively, ordered by path.
func (s *KuzuStore) QueryDefs(_ context.Context, queryStr, kind string, limit int) ([]grapher.Def, error) {
	cypher := "MATCH (d:Def) WHERE lower(d.path) CONTAINS lower($q)"
	params := map[string]any{"q": queryStr}
	if kind != "" {
		cypher += " AND d.kind = $kind"
		params["kind"] = kind
	}
	cypher += " RETURN " + kuzuDefColumns + " ORDER BY d.path"
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}

	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]grapher.Def, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToDef(r))
	}
	return out, nil
}

// FindRefs returns every reference to defPath ordered by file and offset.
func (s *KuzuStore) FindRefs(_ context.Context, defPath string) ([]grapher.Ref, error) {
	rows, err := s.query(
		`MATCH (r:Ref) WHERE r.def_path = $p
		 RETURN r.def_path, r.def_file, r.is_def, r.file, r.start_byte, r.end_byte, r.to_builtin
		 ORDER BY r.file, r.start_byte, r.end_byte, r.def_file`,
		map[string]any{"p": defPath},
	)
	if err != nil {
		return nil, err
	}
	out := make([]grapher.Ref, 0, len(rows))
	for _, r := range rows {
		out = append(out, grapher.Ref{
			DefPath:   toString(r[0]),
			DefFile:   toString(r[1]),
			Def:       toBool(r[2]),
			File:      toString(r[3]),
			Start:     toInt(r[4]),
			End:       toInt(r[5]),
			ToBuiltin: toBool(r[6]),
		})
	}
	return out, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over DEPENDS_ON edges starting from the
// given file. It returns one DependencyChain per reachable file.
func (s *KuzuStore) GetDependencies(_ context.Context, file string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	return walkDependencies(file, maxDepth, func(tip string) ([]string, error) {
		return s.fileNeighbors(tip, dir)
	})
}

// fileNeighbors returns immediate file neighbors along DEPENDS_ON edges.
func (s *KuzuStore) fileNeighbors(path string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:File {path: $path})-[:DEPENDS_ON]->(b:File) RETURN b.path ORDER BY b.path"
	case DirectionDownstream:
		cypher = "MATCH (a:File)-[:DEPENDS_ON]->(b:File {path: $path}) RETURN a.path ORDER BY a.path"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact walks DEPENDS_ON edges downstream from the changed files to
// find direct and transitive dependents.
func (s *KuzuStore) AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error) {
	totalFiles, err := s.countTable("File")
	if err != nil {
		return nil, err
	}
	return assessImpact(ctx, s, changedFiles, totalFiles)
}

// GetClusters returns all Cluster nodes with their members.
func (s *KuzuStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	rows, err := s.query(
		"MATCH (c:Cluster) RETURN c.name, c.cohesion_score ORDER BY c.name",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ClusterNode, 0, len(rows))
	for _, r := range rows {
		name := toString(r[0])
		score := toFloat64(r[1])

		// Fetch cluster members via BELONGS_TO edges.
		memberRows, err := s.query(
			"MATCH (f:File)-[:BELONGS_TO]->(c:Cluster {name: $name}) RETURN f.path ORDER BY f.path",
			map[string]any{"name": name},
		)
		if err != nil {
			return nil, err
		}
		members := make([]string, 0, len(memberRows))
		for _, mr := range memberRows {
			members = append(members, toString(mr[0]))
		}

		out = append(out, ClusterNode{
			Name:          name,
			CohesionScore: score,
			Members:       members,
		})
	}
	return out, nil
}

// ---------- Edge enumeration ----------

// GetAllEdges returns all edges across all relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	type relQuery struct {
		cypher string
		kind   EdgeKind
	}

	queries := []relQuery{
		{"MATCH (a:File)-[:DEPENDS_ON]->(b:File) RETURN a.path, b.path ORDER BY a.path, b.path", EdgeKindDependsOn},
		{"MATCH (a:File)-[:BELONGS_TO]->(b:Cluster) RETURN a.path, b.name ORDER BY a.path, b.name", EdgeKindBelongs},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	var stats GraphStats
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"File", &stats.FileCount},
		{"Def", &stats.DefCount},
		{"Ref", &stats.RefCount},
		{"Cluster", &stats.ClusterCount},
	} {
		n, err := s.countTable(c.table)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	stats.EdgeCount = edges
	return &stats, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuStore) countEdges() (int, error) {
	total := 0
	for _, t := range []string{"DEPENDS_ON", "BELONGS_TO"} {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t)
		rows, err := s.query(cypher, nil)
		if err != nil {
			return 0, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToDef converts a kuzuDefColumns result row into a Def.
func rowToDef(r []any) grapher.Def {
	return grapher.Def{
		Path:      toString(r[0]),
		Kind:      toString(r[1]),
		Name:      toString(r[2]),
		File:      toString(r[3]),
		DefStart:  toInt(r[4]),
		DefEnd:    toInt(r[5]),
		Exported:  toBool(r[6]),
		Docstring: toString(r[7]),
	}
}

// refID joins a ref key into a primary key value.
func refID(k grapher.RefKey) string {
	return fmt.Sprintf("%s\x1f%s\x1f%s\x1f%d\x1f%d", k.DefPath, k.DefFile, k.File, k.Start, k.End)
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
