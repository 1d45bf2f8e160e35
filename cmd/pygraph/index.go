package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/pygraph/internal/config"
	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/index"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		excludes []string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every Python file under the root into the graph store",
		Long:  "Graphs every Python file under the root, loads definitions, references and file dependencies into the store, and computes file clusters. Files that fail to graph are reported and skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(excludes) > 0 {
				a.cfg.ExcludeDirs = append(a.cfg.ExcludeDirs, excludes...)
			}
			if workers > 0 {
				a.cfg.Workers = workers
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			start := time.Now()
			report, err := a.index(cmd.Context(), store)
			if err != nil {
				return err
			}
			a.log.Info("indexed", "root", a.root, "files", len(report.Files), "failed", len(report.Failed), "elapsed", time.Since(start).Round(time.Millisecond))

			if a.flags.Format == "text" {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Indexed %d files (%d failed) into %s store\n", len(report.Files), len(report.Failed), a.cfg.Store)
				fmt.Fprintf(w, "Defs: %d  Refs: %d  Edges: %d  Clusters: %d\n",
					report.Stats.DefCount, report.Stats.RefCount, report.Stats.EdgeCount, report.Clusters)
				for _, f := range report.Failed {
					fmt.Fprintf(w, "failed: %s: %s\n", f.File, f.Err)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "additional directory names to skip")
	cmd.Flags().IntVar(&workers, "workers", 0, "files graphed concurrently (default: config, then GOMAXPROCS)")
	return cmd
}

// index runs a full index of the root into store.
func (a *app) index(ctx context.Context, store graph.Store) (*index.Report, error) {
	oracle, err := a.newOracle()
	if err != nil {
		return nil, err
	}
	return index.Run(ctx, store, oracle, a.root, index.Options{
		ExcludeDirs:   a.cfg.ExcludeDirs,
		Workers:       a.cfg.Workers,
		Canonicalizer: a.canonicalizer(),
		Logger:        a.log,
	})
}

// queryStore opens the store for a read command. The memory store starts
// empty, so the root is indexed into it first.
func (a *app) queryStore(ctx context.Context) (graph.Store, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if a.cfg.Store != config.StoreMemory {
		return store, nil
	}
	if _, err := a.index(ctx, store); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
