//go:build e2e && cgo

package e2e

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/grapher"
	"github.com/dusk-indust/pygraph/internal/index"
	"github.com/dusk-indust/pygraph/internal/logging"
	"github.com/dusk-indust/pygraph/internal/pyoracle"
)

var update = flag.Bool("update", false, "update golden files")

// goldenPath returns the path of the fixture's golden JSON export.
func goldenPath() string {
	return filepath.Join("..", "..", "testdata", "golden", "py_project.json")
}

// exportFixture graphs every discoverable fixture file and returns the
// merged JSON export. The absolute fixture root is replaced with $ROOT so
// the output does not depend on the checkout location.
func exportFixture(t *testing.T) []byte {
	t.Helper()
	root := fixtureRoot(t)
	oracle, err := pyoracle.New(root)
	require.NoError(t, err)

	files, err := index.Discover(root, []string{"vendor"})
	require.NoError(t, err)

	var results []*grapher.Result
	for _, f := range files {
		res, err := index.GraphFile(context.Background(), oracle, root, filepath.Join(root, f), index.Options{Logger: logging.Discard()})
		if err != nil {
			continue
		}
		results = append(results, res)
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, results...))
	return []byte(strings.ReplaceAll(buf.String(), filepath.ToSlash(root), "$ROOT"))
}

// TestGolden compares the fixture export against the golden file. If the
// golden file does not exist, the test is skipped with a message to run
// with -update.
func TestGolden(t *testing.T) {
	golden, err := os.ReadFile(goldenPath())
	if os.IsNotExist(err) {
		t.Skip("golden file not found; run with -update to generate")
		return
	}
	require.NoError(t, err)

	assert.JSONEq(t, string(golden), string(exportFixture(t)))
}

// TestUpdateGolden regenerates the golden file from the current export.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	data := exportFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath()), 0o755))
	require.NoError(t, os.WriteFile(goldenPath(), data, 0o644))
	t.Logf("updated %s", goldenPath())
}
