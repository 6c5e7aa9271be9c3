package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/store"
)

const program = `
(panel "north" :points (list (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0) (vec3 0 1 0)))
(panel "east"  :points (list (vec3 1 0 0) (vec3 2 0 0) (vec3 2 1 0) (vec3 1 1 0)))
`

// workspace writes the program and a config storing into a file store in
// a temporary directory.
func workspace(t *testing.T) (dir, prog, cfg string) {
	t.Helper()
	dir = t.TempDir()
	prog = filepath.Join(dir, "envelope.lisp")
	require.NoError(t, os.WriteFile(prog, []byte(program), 0644))
	cfg = filepath.Join(dir, "cassette.toml")
	toml := "[store]\nbackend = \"file\"\ndir = " + `"` + filepath.ToSlash(filepath.Join(dir, "store")) + `"` + "\n[kernel]\nmesh_cells = 40\n"
	require.NoError(t, os.WriteFile(cfg, []byte(toml), 0644))
	return dir, prog, cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	dir, prog, cfg := workspace(t)
	meshDir := filepath.Join(dir, "meshes")

	out, err := execute(t, "generate", prog, "--config", cfg, "--out", meshDir, "--kind", "plate")
	require.NoError(t, err)
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "east x north")
	assert.Contains(t, out, "all components built")

	files, err := filepath.Glob(filepath.Join(meshDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(meshDir, "north_P.json"))
	require.NoError(t, err)
	var m kernel.Mesh
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "north_P", m.ComponentID)
	assert.False(t, m.IsEmpty())

	// The file store keeps the run for inspect.
	out, err = execute(t, "inspect", "--config", cfg, "--kind", "dowel")
	require.NoError(t, err)
	assert.Contains(t, out, "north_DA")
	assert.Contains(t, out, "8 components")

	out, err = execute(t, "inspect", "east_P", "--config", cfg)
	require.NoError(t, err)
	var rec struct {
		ID   string          `json:"id"`
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "east_P", rec.ID)
	assert.Equal(t, "plate", rec.Kind)
	assert.Contains(t, string(rec.Data), "details")
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	_, prog, cfg := workspace(t)
	_, err := execute(t, "generate", prog, "--config", cfg, "--out", t.TempDir(), "--kind", "rafter")
	assert.Error(t, err)
}

func TestInspectMissing(t *testing.T) {
	_, _, cfg := workspace(t)
	_, err := execute(t, "inspect", "nothing", "--config", cfg)
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	dir, prog, cfg := workspace(t)
	out, err := execute(t, "graph", prog, "--config", cfg, "--store", "memory")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph cassette {"))

	file := filepath.Join(dir, "graph.dot")
	_, err = execute(t, "graph", prog, "--config", cfg, "--store", "memory", "--out", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "north_P")

	_, err = execute(t, "graph", prog, "--config", cfg, "--format", "png")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	dir, prog, cfg := workspace(t)
	file := filepath.Join(dir, "north.png")
	_, err := execute(t, "preview", prog, "--config", cfg, "--store", "memory", "--panel", "north", "--out", file, "--size", "128")
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = execute(t, "preview", prog, "--config", cfg, "--store", "memory", "--panel", "south")
	assert.Error(t, err)
}

func TestLoadConfigOverride(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	cfg, err := c.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	c.backend = "file"
	cfg, err = c.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)

	c.backend = "sqlite"
	_, err = c.loadConfig()
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := openStore(ctx, config.StoreConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)

	st, err = openStore(ctx, config.StoreConfig{Backend: config.BackendFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, st)

	_, err = openStore(ctx, config.StoreConfig{Backend: "tape"})
	assert.Error(t, err)
}
