package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDefsText(w io.Writer, defs []grapher.Def) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tFILE\tSTART\tEND")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", d.Path, d.Kind, d.File, d.DefStart, d.DefEnd)
	}
	tw.Flush()
}

func formatRefsText(w io.Writer, refs []grapher.Ref) {
	for _, r := range refs {
		fmt.Fprintf(w, "%s:%d-%d\n", r.File, r.Start, r.End)
	}
}

func formatChainsText(w io.Writer, chains []graph.DependencyChain) {
	for _, c := range chains {
		fmt.Fprintln(w, strings.Join(c.Nodes, " -> "))
	}
}

func formatImpactText(w io.Writer, impact *graph.ImpactResult) {
	fmt.Fprintf(w, "Risk: %.2f\n", impact.RiskScore)
	for _, f := range impact.DirectlyAffected {
		fmt.Fprintf(w, "direct: %s\n", f)
	}
	for _, f := range impact.TransitivelyAffected {
		fmt.Fprintf(w, "transitive: %s\n", f)
	}
}

func formatClustersText(w io.Writer, clusters []graph.ClusterNode) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOHESION\tMEMBERS")
	for _, c := range clusters {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", c.Name, c.CohesionScore, strings.Join(c.Members, ","))
	}
	tw.Flush()
}
