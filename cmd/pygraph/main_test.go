package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/config"
	"github.com/dusk-indust/pygraph/internal/export"
	"github.com/dusk-indust/pygraph/internal/grapher"
)

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", "py_project"))
	require.NoError(t, err)
	return root
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestGraphCmd(t *testing.T) {
	root := fixtureRoot(t)
	out, err := execute(t, "--root", root, "graph", filepath.Join(root, "util", "strings.py"))
	require.NoError(t, err)

	var got export.GraphExport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Defs, 1)
	assert.Equal(t, "util/strings", got.Defs[0].Path)
	assert.Equal(t, grapher.KindModule, got.Defs[0].Kind)
	for _, r := range got.Refs {
		assert.Equal(t, "util/strings.py", r.File)
	}
}

func TestGraphCmd_ParseFailure(t *testing.T) {
	root := fixtureRoot(t)
	broken := filepath.Join(root, "broken.py")

	_, err := execute(t, "--root", root, "graph", broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, grapher.ErrParse)

	out, err := execute(t, "--root", root, "graph", "--keep-going", broken)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Defs":[],"Refs":[]}`, out)
}

func TestDefsCmd_MemoryStoreIndexesFirst(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "defs", "app/cli")
	require.NoError(t, err)

	var defs []grapher.Def
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	paths := make([]string, len(defs))
	for i, d := range defs {
		paths[i] = d.Path
	}
	assert.Equal(t, []string{"app/cli", "app/cli/service", "app/cli/sys"}, paths)
}

func TestDefsCmd_KindFilter(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "defs", "--kind", grapher.KindModule, "app")
	require.NoError(t, err)

	var defs []grapher.Def
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	require.NotEmpty(t, defs)
	for _, d := range defs {
		assert.Equal(t, grapher.KindModule, d.Kind, d.Path)
	}
}

func TestRefsCmd_Text(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "--format", "text", "refs", "app/service/greet")
	require.NoError(t, err)
	assert.Contains(t, out, "app/cli.py:")
}

func TestDepsCmd_Text(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "--format", "text",
		"deps", "--direction", "downstream", "app/models.py")
	require.NoError(t, err)
	assert.Contains(t, out, "app/models.py -> app/service.py\n")
	assert.Contains(t, out, "app/models.py -> app/service.py -> app/cli.py\n")
}

func TestDepsCmd_InvalidDirection(t *testing.T) {
	_, err := execute(t, "--root", fixtureRoot(t), "deps", "--direction", "sideways", "app/cli.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid direction")
}

func TestImpactCmd(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "impact", "util/strings.py")
	require.NoError(t, err)

	var impact struct {
		DirectlyAffected     []string `json:"directlyAffected"`
		TransitivelyAffected []string `json:"transitivelyAffected"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &impact))
	assert.Equal(t, []string{"app/models.py"}, impact.DirectlyAffected)
	assert.Contains(t, impact.TransitivelyAffected, "app/cli.py")
}

func TestDiagramCmd(t *testing.T) {
	out, err := execute(t, "--root", fixtureRoot(t), "diagram")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "-->")
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "defs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSetup_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	yml := "store: sqlite\nlogLevel: debug\nworkers: 2\nsearchPaths:\n  - lib\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pygraph.yml"), []byte(yml), 0o644))

	a := &app{flags: cliFlags{Root: dir, Format: "json", Store: config.StoreMemory}}
	require.NoError(t, a.setup(&bytes.Buffer{}))

	assert.Equal(t, config.StoreMemory, a.cfg.Store)
	assert.Equal(t, "debug", a.cfg.LogLevel)
	assert.Equal(t, 2, a.cfg.Workers)
	assert.Equal(t, []string{filepath.Join(dir, "lib")}, a.cfg.SearchPaths)
	assert.Equal(t, filepath.Join(dir, config.DefaultStorePath), a.storePath())
}

func TestSetup_InvalidOverride(t *testing.T) {
	a := &app{flags: cliFlags{Root: t.TempDir(), Format: "json", Store: "redis"}}
	assert.Error(t, a.setup(&bytes.Buffer{}))

	a = &app{flags: cliFlags{Root: t.TempDir(), Format: "json", LogLevel: "loud"}}
	assert.Error(t, a.setup(&bytes.Buffer{}))
}

func TestSetup_ExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtimePrefix: python\n"), 0o644))

	a := &app{flags: cliFlags{Root: t.TempDir(), Config: path, Format: "json"}}
	require.NoError(t, a.setup(&bytes.Buffer{}))
	assert.Equal(t, "python", a.cfg.RuntimePrefix)
	assert.Equal(t, config.StoreMemory, a.cfg.Store)
}
