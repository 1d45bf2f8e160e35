package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/pygraph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Files are grouped by cluster; DEPENDS_ON edges become arrows.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return "", fmt.Errorf("get clusters: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(path string) string {
		if id, ok := nodeIDs[path]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[path] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		sorted := make([]string, len(c.Members))
		copy(sorted, c.Members)
		sort.Strings(sorted)

		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", getID("cluster:"+c.Name), c.Name)
		for _, member := range sorted {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID(member), shortPath(member))
		}
		sb.WriteString("  end\n")
	}

	var deps []graph.Edge
	for _, e := range edges {
		if e.Kind == graph.EdgeKindDependsOn {
			deps = append(deps, e)
		}
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].SourceID != deps[j].SourceID {
			return deps[i].SourceID < deps[j].SourceID
		}
		return deps[i].TargetID < deps[j].TargetID
	})

	// Files outside any cluster still need a labeled node.
	for _, e := range deps {
		for _, p := range []string{e.SourceID, e.TargetID} {
			if _, ok := nodeIDs[p]; !ok {
				fmt.Fprintf(&sb, "  %s[\"%s\"]\n", getID(p), shortPath(p))
			}
		}
	}
	for _, e := range deps {
		fmt.Fprintf(&sb, "  %s --> %s\n", getID(e.SourceID), getID(e.TargetID))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
