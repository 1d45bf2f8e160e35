package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

func newDefsCmd(a *app) *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "defs [QUERY]",
		Short: "Search definitions by path substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) > 0 {
				query = args[0]
			}
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			defs, err := store.QueryDefs(cmd.Context(), query, kind, limit)
			if err != nil {
				return fmt.Errorf("query defs: %w", err)
			}
			if defs == nil {
				defs = []grapher.Def{}
			}
			if a.flags.Format == "text" {
				formatDefsText(cmd.OutOrStdout(), defs)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), defs)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only definitions of this kind (module, import, ...)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results (0 for all)")
	return cmd
}

func newRefsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refs DEF_PATH",
		Short: "List the references to a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			refs, err := store.FindRefs(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find refs: %w", err)
			}
			if refs == nil {
				refs = []grapher.Ref{}
			}
			if a.flags.Format == "text" {
				formatRefsText(cmd.OutOrStdout(), refs)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), refs)
		},
	}
}

func newDepsCmd(a *app) *cobra.Command {
	var (
		direction string
		depth     int
	)
	cmd := &cobra.Command{
		Use:   "deps FILE",
		Short: "Show the dependency chains of a file",
		Long:  "FILE is root-relative. Upstream chains follow what the file imports; downstream chains follow what imports it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if direction != string(graph.DirectionUpstream) && direction != string(graph.DirectionDownstream) {
				return fmt.Errorf("invalid direction %q: want upstream or downstream", direction)
			}
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			chains, err := store.GetDependencies(cmd.Context(), args[0], graph.ParseDirection(direction), depth)
			if err != nil {
				return fmt.Errorf("get dependencies: %w", err)
			}
			if chains == nil {
				chains = []graph.DependencyChain{}
			}
			if a.flags.Format == "text" {
				formatChainsText(cmd.OutOrStdout(), chains)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), chains)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(graph.DirectionUpstream), "upstream|downstream")
	cmd.Flags().IntVar(&depth, "depth", 5, "maximum chain length")
	return cmd
}

func newImpactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "impact FILE...",
		Short: "Assess which files are affected by changing the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			impact, err := store.AssessImpact(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("assess impact: %w", err)
			}
			if a.flags.Format == "text" {
				formatImpactText(cmd.OutOrStdout(), impact)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), impact)
		},
	}
}

func newClustersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List file clusters and their cohesion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			clusters, err := store.GetClusters(cmd.Context())
			if err != nil {
				return fmt.Errorf("get clusters: %w", err)
			}
			if clusters == nil {
				clusters = []graph.ClusterNode{}
			}
			if a.flags.Format == "text" {
				formatClustersText(cmd.OutOrStdout(), clusters)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), clusters)
		},
	}
}

func newDiagramCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagram",
		Short: "Render the file dependency graph as Mermaid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.queryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			out, err := export.GenerateMermaid(cmd.Context(), store)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
