package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/index"
)

func newGraphCmd(a *app) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "graph FILE...",
		Short: "Graph Python files and print their definitions and references",
		Long:  "Graphs each file on its own and prints the merged Defs and Refs as JSON. Nothing is written to the store.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oracle, err := a.newOracle()
			if err != nil {
				return err
			}
			opts := index.Options{Canonicalizer: a.canonicalizer(), Logger: a.log}

			var results []*grapher.Result
			for _, arg := range args {
				file, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				res, err := index.GraphFile(cmd.Context(), oracle, a.root, file, opts)
				if err != nil {
					var fe *grapher.FileError
					if keepGoing && errors.As(err, &fe) {
						a.log.Warn("skipping file", "file", fe.Path, "err", fe.Err)
						continue
					}
					return err
				}
				results = append(results, res)
			}
			return export.WriteJSON(cmd.OutOrStdout(), results...)
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "skip files that fail to graph instead of stopping")
	return cmd
}
