package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeIntelMCPServer creates an MCP server with the graph tools registered.
func NewCodeIntelMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pygraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_file",
		Description: "Extract the definitions and references of a single Python file. Returns Def and Ref records with byte offsets and canonical symbol paths.",
	}, svc.GraphFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_project",
		Description: "Graph every Python file under a project root into the store, derive file dependency edges, and compute file clusters. Files that fail to parse are listed, not fatal.",
	}, svc.IndexProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_defs",
		Description: "Search indexed definitions by path substring (case-insensitive). Optionally filter by kind and limit results.",
	}, svc.QueryDefs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_refs",
		Description: "List every indexed reference to a definition path, ordered by file and byte offset.",
	}, svc.FindRefs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the file dependency graph upstream or downstream from a file. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "Compute the blast radius of modifying a set of files. Returns directly and transitively affected files with a risk score.",
	}, svc.AssessImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Return the file clusters computed during indexing, with cohesion scores.",
	}, svc.GetClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_diagram",
		Description: "Render the file dependency graph as a Mermaid diagram grouped by cluster.",
	}, svc.GetDiagram)

	return server
}

// RunMCPServer starts an HTTP server exposing the MCP tools over the
// streamable HTTP transport.
func RunMCPServer(ctx context.Context, svc *CodeIntelService, addr string) error {
	server := NewCodeIntelMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio, blocking until stdin is
// closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *CodeIntelService) error {
	return NewCodeIntelMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
