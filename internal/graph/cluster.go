package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ComputeClusters finds connected components in the file dependency graph
// (DEPENDS_ON edges only) and stores them as ClusterNodes.
//
// Algorithm:
//  1. Build an undirected adjacency list from DEPENDS_ON edges among the given files.
//  2. Find connected components via BFS, visiting files in sorted order.
//  3. For each component with >= 2 files, compute a cohesion score and store the cluster.
func ComputeClusters(ctx context.Context, store Store, files []string) ([]ClusterNode, error) {
	files = append([]string(nil), files...)
	sort.Strings(files)

	adj, err := buildAdjacency(ctx, store, files)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool, len(files))
	used := make(map[string]int)
	var clusters []ClusterNode

	for _, f := range files {
		if visited[f] {
			continue
		}
		component := bfsComponent(f, adj, visited)
		if len(component) < 2 {
			continue
		}
		sort.Strings(component)
		cohesion := computeCohesion(component, adj)
		name := clusterName(component, used)
		cluster := ClusterNode{
			Name:          name,
			CohesionScore: cohesion,
			Members:       component,
		}
		if err := store.AddCluster(ctx, cluster); err != nil {
			return nil, err
		}
		// Add BELONGS edges for each member.
		for _, member := range component {
			edge := Edge{
				SourceID: member,
				TargetID: name,
				Kind:     EdgeKindBelongs,
			}
			if err := store.AddEdge(ctx, edge); err != nil {
				return nil, err
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters, nil
}

// buildAdjacency constructs a bidirectional adjacency list from DEPENDS_ON
// edges using a single pass over all edges.
func buildAdjacency(ctx context.Context, store Store, files []string) (map[string]map[string]bool, error) {
	adj := make(map[string]map[string]bool, len(files))
	for _, f := range files {
		adj[f] = make(map[string]bool)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	for _, e := range edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		// Only include edges between known files.
		if adj[e.SourceID] != nil && adj[e.TargetID] != nil {
			adj[e.SourceID][e.TargetID] = true
			adj[e.TargetID][e.SourceID] = true
		}
	}

	return adj, nil
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable nodes. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return component
}

// computeCohesion calculates the density of a component: internal edges
// divided by the number of possible undirected edges between its members.
func computeCohesion(component []string, adj map[string]map[string]bool) float64 {
	n := len(component)
	if n < 2 {
		return 0
	}
	memberSet := make(map[string]bool, n)
	for _, m := range component {
		memberSet[m] = true
	}

	internalEdges := 0
	for _, m := range component {
		for neighbor := range adj[m] {
			// Count each undirected edge once.
			if memberSet[neighbor] && m < neighbor {
				internalEdges++
			}
		}
	}
	return float64(internalEdges) / float64(n*(n-1)/2)
}

// clusterName derives a unique cluster name from the members' common
// directory.
func clusterName(component []string, used map[string]int) string {
	name := strings.TrimSuffix(longestCommonPrefix(component), "/")
	if name == "" {
		name = "."
	}
	used[name]++
	if n := used[name]; n > 1 {
		name = fmt.Sprintf("%s#%d", name, n)
	}
	return name
}

// longestCommonPrefix finds the longest common path prefix among a set of
// file paths. Returns an empty string if no common prefix is found.
func longestCommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	if len(paths) == 1 {
		return paths[0]
	}

	prefix := paths[0]
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			// Trim to the last path separator (excluding any trailing slash).
			trimmed := strings.TrimRight(prefix, "/")
			idx := strings.LastIndex(trimmed, "/")
			if idx < 0 {
				return ""
			}
			prefix = trimmed[:idx+1] // keep the trailing slash
			if prefix == "/" || prefix == "" {
				return prefix
			}
		}
	}

	// Ensure prefix ends at a directory boundary.
	if !strings.HasSuffix(prefix, "/") {
		idx := strings.LastIndex(prefix, "/")
		if idx >= 0 {
			prefix = prefix[:idx+1]
		}
	}

	return prefix
}
