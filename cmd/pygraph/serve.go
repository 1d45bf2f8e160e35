package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/pygraph/internal/mcptools"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the graph tools over MCP",
		Long:  "Runs an MCP server over stdio, or over streamable HTTP when --http is set. The store is shared by every session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			svc := mcptools.NewCodeIntelService(store, mcptools.ServiceOptions{
				SearchPaths:    a.cfg.SearchPaths,
				ExcludeDirs:    a.cfg.ExcludeDirs,
				PackageMarkers: a.cfg.PackageMarkers,
				RuntimePrefix:  a.cfg.RuntimePrefix,
				Workers:        a.cfg.Workers,
				Logger:         a.log,
			})
			if addr != "" {
				a.log.Info("serving MCP over HTTP", "addr", addr)
				return mcptools.RunMCPServer(cmd.Context(), svc, addr)
			}
			return mcptools.RunMCPServerStdio(cmd.Context(), svc)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address for streamable HTTP (default: stdio)")
	return cmd
}
