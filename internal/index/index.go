// Package index graphs every Python file of a project and loads the results
// into a graph.Store.
//
// Files are graphed in parallel, one FileGrapher per file. A file that fails
// to graph is recorded in the Report and skipped; it never aborts the run.
// Store writes happen on the calling goroutine only.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

// Options configures a run.
type Options struct {
	// ExcludeDirs are directory names skipped wherever they appear.
	ExcludeDirs []string
	// Workers bounds the number of files graphed concurrently.
	// Zero selects GOMAXPROCS.
	Workers int
	// Canonicalizer overrides the default path canonicalizer of the root.
	Canonicalizer *grapher.Canonicalizer
	Logger        *slog.Logger
}

// Failure is a file that could not be graphed.
type Failure struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// Report summarizes a run.
type Report struct {
	Files    []string         `json:"files"` // graphed successfully, sorted
	Failed   []Failure        `json:"failed,omitempty"`
	Clusters int              `json:"clusters"`
	Stats    graph.GraphStats `json:"stats"`
}

// fileResult carries one worker's outcome back to the writer.
type fileResult struct {
	file string
	res  *grapher.Result
	err  error
}

// Run discovers the Python files under root, graphs each with oracle and
// loads the results into store. Clusters are computed over the files that
// graphed successfully. The returned error is non-nil only for failures
// that are not scoped to one file: discovery, store writes, cancellation.
func Run(ctx context.Context, store graph.Store, oracle grapher.Oracle, root string, opts Options) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files, err := Discover(absRoot, opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fileResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		defer close(results)
		for _, f := range files {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res, err := graphFile(gctx, oracle, absRoot, filepath.Join(absRoot, filepath.FromSlash(f)), opts.Canonicalizer, log)
				select {
				case results <- fileResult{file: f, res: res, err: err}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	report := &Report{}
	var writeErr error
	for r := range results {
		if writeErr != nil {
			continue
		}
		if r.err != nil {
			if errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded) {
				continue
			}
			log.Warn("skipping file", "file", r.file, "err", r.err)
			report.Failed = append(report.Failed, Failure{File: r.file, Err: r.err.Error()})
			continue
		}
		if err := graph.Load(ctx, store, absRoot, r.res); err != nil {
			writeErr = fmt.Errorf("load %s: %w", r.file, err)
			cancel()
			continue
		}
		report.Files = append(report.Files, r.file)
	}
	if writeErr != nil {
		return nil, writeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(report.Files)
	sortFailures(report.Failed)

	clusters, err := graph.ComputeClusters(ctx, store, report.Files)
	if err != nil {
		return nil, fmt.Errorf("compute clusters: %w", err)
	}
	report.Clusters = len(clusters)

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	report.Stats = *stats
	return report, nil
}

// GraphFile graphs a single file of the project rooted at root. file may
// be absolute or relative to the working directory.
func GraphFile(ctx context.Context, oracle grapher.Oracle, root, file string, opts Options) (*grapher.Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", file, err)
	}
	return graphFile(ctx, oracle, root, abs, opts.Canonicalizer, log)
}

// graphFile runs one FileGrapher over the file at abs.
func graphFile(ctx context.Context, oracle grapher.Oracle, root, abs string, canon *grapher.Canonicalizer, log *slog.Logger) (*grapher.Result, error) {
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	fg, err := grapher.New(root, abs, oracle,
		grapher.WithSource(source),
		grapher.WithCanonicalizer(canon),
		grapher.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return fg.Graph(ctx)
}
