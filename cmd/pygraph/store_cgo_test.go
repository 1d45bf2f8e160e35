//go:build cgo

package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/index"
)

// TestIndexThenQuery_PersistentStores indexes once and queries from a
// second invocation, which must read the persisted graph.
func TestIndexThenQuery_PersistentStores(t *testing.T) {
	for _, backend := range []string{"sqlite", "kuzu"} {
		t.Run(backend, func(t *testing.T) {
			storePath := filepath.Join(t.TempDir(), "graph")
			common := []string{"--root", fixtureRoot(t), "--store", backend, "--store-path", storePath}

			out, err := execute(t, append(common, "index", "--exclude", "vendor")...)
			require.NoError(t, err)
			var report index.Report
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Len(t, report.Files, 5)
			require.Len(t, report.Failed, 1)
			assert.Equal(t, "broken.py", report.Failed[0].File)

			out, err = execute(t, append(common, "refs", "util/strings")...)
			require.NoError(t, err)
			var refs []grapher.Ref
			require.NoError(t, json.Unmarshal([]byte(out), &refs))
			require.Len(t, refs, 1)
			assert.Equal(t, "app/models.py", refs[0].File)
		})
	}
}
