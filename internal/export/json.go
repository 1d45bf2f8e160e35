package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dusk-indust/pygraph/internal/graph"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

// GraphExport is the top-level JSON export structure. Field names follow
// the Def and Ref records.
type GraphExport struct {
	Defs []grapher.Def `json:"Defs"`
	Refs []grapher.Ref `json:"Refs"`
}

// NewGraphExport merges results into one export. A Def path present in
// several results keeps its first occurrence; refs are merged by key.
// Defs are ordered by Path, refs by file and offset.
func NewGraphExport(results ...*grapher.Result) *GraphExport {
	defs := make(map[string]grapher.Def)
	refs := make(map[grapher.RefKey]grapher.Ref)
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, d := range graph.SortedDefs(res) {
			if _, ok := defs[d.Path]; !ok {
				defs[d.Path] = d
			}
		}
		for k, r := range res.Refs {
			if _, ok := refs[k]; !ok {
				refs[k] = r
			}
		}
	}

	out := &GraphExport{
		Defs: make([]grapher.Def, 0, len(defs)),
		Refs: make([]grapher.Ref, 0, len(refs)),
	}
	for _, d := range defs {
		out.Defs = append(out.Defs, d)
	}
	sort.Slice(out.Defs, func(i, j int) bool { return out.Defs[i].Path < out.Defs[j].Path })
	for _, r := range refs {
		out.Refs = append(out.Refs, r)
	}
	graph.SortRefs(out.Refs)
	return out
}

// WriteJSON writes the merged export of results to w, indented.
func WriteJSON(w io.Writer, results ...*grapher.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewGraphExport(results...)); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}
