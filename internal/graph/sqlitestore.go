//go:build cgo

package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

// SQLiteStore implements Store on a single SQLite database file. Edges of
// both kinds share one table; cluster membership is read back from the
// BELONGS rows.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath with WAL
// mode enabled. Pass ":memory:" for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and writes
	// serialize anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSchemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  path       TEXT PRIMARY KEY,
  module     TEXT NOT NULL,
  def_count  INTEGER NOT NULL DEFAULT 0,
  ref_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS defs (
  path       TEXT PRIMARY KEY,
  kind       TEXT NOT NULL,
  name       TEXT NOT NULL,
  file       TEXT NOT NULL,
  def_start  INTEGER NOT NULL,
  def_end    INTEGER NOT NULL,
  exported   BOOLEAN NOT NULL,
  docstring  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS refs (
  def_path   TEXT NOT NULL,
  def_file   TEXT NOT NULL,
  file       TEXT NOT NULL,
  start_off  INTEGER NOT NULL,
  end_off    INTEGER NOT NULL,
  is_def     BOOLEAN NOT NULL,
  to_builtin BOOLEAN NOT NULL,
  PRIMARY KEY (def_path, def_file, file, start_off, end_off)
);

CREATE TABLE IF NOT EXISTS edges (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  source     TEXT NOT NULL,
  target     TEXT NOT NULL,
  kind       TEXT NOT NULL,
  UNIQUE (source, target, kind)
);

CREATE TABLE IF NOT EXISTS clusters (
  name            TEXT PRIMARY KEY,
  cohesion_score  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refs_def_path ON refs(def_path);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target, kind);
`

// InitSchema creates all tables and indexes. Idempotent.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// AddFile upserts a file node, replacing any placeholder created by AddEdge.
func (s *SQLiteStore) AddFile(ctx context.Context, node FileNode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, module, def_count, ref_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET module = excluded.module,
		   def_count = excluded.def_count, ref_count = excluded.ref_count`,
		node.Path, node.Module, node.DefCount, node.RefCount)
	if err != nil {
		return fmt.Errorf("insert file %s: %w", node.Path, err)
	}
	return nil
}

// AddDef stores def unless its path is already present.
func (s *SQLiteStore) AddDef(ctx context.Context, def grapher.Def) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO defs (path, kind, name, file, def_start, def_end, exported, docstring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.Path, def.Kind, def.Name, def.File, def.DefStart, def.DefEnd, def.Exported, def.Docstring)
	if err != nil {
		return fmt.Errorf("insert def %s: %w", def.Path, err)
	}
	return nil
}

// AddRef stores ref unless an identical edge is already present.
func (s *SQLiteStore) AddRef(ctx context.Context, ref grapher.Ref) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO refs (def_path, def_file, file, start_off, end_off, is_def, to_builtin)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ref.DefPath, ref.DefFile, ref.File, ref.Start, ref.End, ref.Def, ref.ToBuiltin)
	if err != nil {
		return fmt.Errorf("insert ref %s: %w", ref.DefPath, err)
	}
	return nil
}

// AddCluster upserts a cluster by name.
func (s *SQLiteStore) AddCluster(ctx context.Context, node ClusterNode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clusters (name, cohesion_score) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET cohesion_score = excluded.cohesion_score`,
		node.Name, node.CohesionScore)
	if err != nil {
		return fmt.Errorf("insert cluster %s: %w", node.Name, err)
	}
	return nil
}

// AddEdge records edge once. DEPENDS_ON endpoints are registered as files.
func (s *SQLiteStore) AddEdge(ctx context.Context, edge Edge) error {
	switch edge.Kind {
	case EdgeKindDependsOn, EdgeKindBelongs:
	default:
		return fmt.Errorf("unsupported edge kind: %s", edge.Kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if edge.Kind == EdgeKindDependsOn {
		for _, p := range []string{edge.SourceID, edge.TargetID} {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO files (path, module) VALUES (?, ?)`,
				p, grapher.ModulePath(p)); err != nil {
				return fmt.Errorf("insert file %s: %w", p, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO edges (source, target, kind) VALUES (?, ?, ?)`,
		edge.SourceID, edge.TargetID, string(edge.Kind)); err != nil {
		return fmt.Errorf("insert edge %s -> %s: %w", edge.SourceID, edge.TargetID, err)
	}
	return tx.Commit()
}

// GetFile returns the file node for path, or nil if not found.
func (s *SQLiteStore) GetFile(ctx context.Context, path string) (*FileNode, error) {
	var f FileNode
	err := s.db.QueryRowContext(ctx,
		`SELECT path, module, def_count, ref_count FROM files WHERE path = ?`, path,
	).Scan(&f.Path, &f.Module, &f.DefCount, &f.RefCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", path, err)
	}
	return &f, nil
}

const sqliteDefColumns = `path, kind, name, file, def_start, def_end, exported, docstring`

// GetDef returns the definition with the given path, or nil if not found.
func (s *SQLiteStore) GetDef(ctx context.Context, path string) (*grapher.Def, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteDefColumns+` FROM defs WHERE path = ?`, path)
	d, err := scanDef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get def %s: %w", path, err)
	}
	return &d, nil
}

// QueryDefs returns definitions whose path contains query (case-insensitive),
// optionally restricted to kind, ordered by path.
func (s *SQLiteStore) QueryDefs(ctx context.Context, query, kind string, limit int) ([]grapher.Def, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + sqliteDefColumns + ` FROM defs WHERE instr(lower(path), lower(?)) > 0`)
	args = append(args, query)
	if kind != "" {
		sb.WriteString(` AND kind = ?`)
		args = append(args, kind)
	}
	sb.WriteString(` ORDER BY path`)
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query defs: %w", err)
	}
	defer rows.Close()

	var out []grapher.Def
	for rows.Next() {
		d, err := scanDef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan def: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindRefs returns every reference to defPath ordered by file and offset.
func (s *SQLiteStore) FindRefs(ctx context.Context, defPath string) ([]grapher.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT def_path, def_file, file, start_off, end_off, is_def, to_builtin FROM refs
		 WHERE def_path = ? ORDER BY file, start_off, end_off, def_file`, defPath)
	if err != nil {
		return nil, fmt.Errorf("find refs %s: %w", defPath, err)
	}
	defer rows.Close()

	var out []grapher.Ref
	for rows.Next() {
		var r grapher.Ref
		if err := rows.Scan(&r.DefPath, &r.DefFile, &r.File, &r.Start, &r.End, &r.Def, &r.ToBuiltin); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDependencies performs a BFS on DEPENDS_ON edges from file in the given
// direction, up to maxDepth hops.
func (s *SQLiteStore) GetDependencies(ctx context.Context, file string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	return walkDependencies(file, maxDepth, func(tip string) ([]string, error) {
		return s.fileNeighbors(ctx, tip, dir)
	})
}

func (s *SQLiteStore) fileNeighbors(ctx context.Context, path string, dir Direction) ([]string, error) {
	q := `SELECT target FROM edges WHERE kind = ? AND source = ? ORDER BY target`
	if dir == DirectionDownstream {
		q = `SELECT source FROM edges WHERE kind = ? AND target = ? ORDER BY source`
	}
	return s.queryStrings(ctx, q, string(EdgeKindDependsOn), path)
}

// AssessImpact computes the blast radius of changing the given files.
func (s *SQLiteStore) AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	return assessImpact(ctx, s, changedFiles, total)
}

// GetClusters returns all clusters with their members, ordered by name.
func (s *SQLiteStore) GetClusters(ctx context.Context) ([]ClusterNode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, cohesion_score FROM clusters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("get clusters: %w", err)
	}
	var out []ClusterNode
	for rows.Next() {
		var c ClusterNode
		if err := rows.Scan(&c.Name, &c.CohesionScore); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Members are read after the cluster cursor closes; the pool holds a
	// single connection.
	for i := range out {
		members, err := s.queryStrings(ctx,
			`SELECT source FROM edges WHERE kind = ? AND target = ? ORDER BY source`,
			string(EdgeKindBelongs), out[i].Name)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

// GetAllEdges returns DEPENDS_ON edges followed by BELONGS edges, each in
// insertion order.
func (s *SQLiteStore) GetAllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, kind FROM edges
		 ORDER BY CASE kind WHEN ? THEN 0 ELSE 1 END, seq`,
		string(EdgeKindDependsOn))
	if err != nil {
		return nil, fmt.Errorf("get edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var (
			e    Edge
			kind string
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &kind); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = EdgeKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns counts of every table.
func (s *SQLiteStore) Stats(ctx context.Context) (*GraphStats, error) {
	var st GraphStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM files),
		(SELECT COUNT(*) FROM defs),
		(SELECT COUNT(*) FROM refs),
		(SELECT COUNT(*) FROM clusters),
		(SELECT COUNT(*) FROM edges)`,
	).Scan(&st.FileCount, &st.DefCount, &st.RefCount, &st.ClusterCount, &st.EdgeCount)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// queryStrings runs a single-column query and collects the results.
func (s *SQLiteStore) queryStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDef(row rowScanner) (grapher.Def, error) {
	var d grapher.Def
	err := row.Scan(&d.Path, &d.Kind, &d.Name, &d.File, &d.DefStart, &d.DefEnd, &d.Exported, &d.Docstring)
	return d, err
}
