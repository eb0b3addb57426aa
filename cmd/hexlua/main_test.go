package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hexlua/internal/config"
	"github.com/dshills/hexlua/internal/registry"
)

const testRegistry = `{
  "patterns": {
    "hexcasting:add": {
      "name": "Additive Distillation",
      "direction": "NORTH_EAST",
      "signature": "waaw",
      "operators": [
        {"description": "Adds two numbers.", "inputs": "num, num", "outputs": "num", "mod_id": "hexcasting"}
      ]
    },
    "hexal:wisp/summon": {
      "name": "Summon Wisp",
      "direction": "EAST",
      "signature": "aqaweewaqawee",
      "operators": [
        {"description": "Summons a wisp.", "inputs": "vec", "outputs": "wisp", "mod_id": "hexal"}
      ]
    }
  }
}`

type env struct {
	dir      string
	db       string
	registry string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{"DB_PATH", "LOG_LEVEL", "WORKERS", "BATCH_SIZE", "REGISTRY", "OUTPUT", "NAMESPACE"} {
		t.Setenv(config.EnvPrefix+"_"+key, "")
		require.NoError(t, os.Unsetenv(config.EnvPrefix+"_"+key))
	}

	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o644))
	return env{dir: dir, db: filepath.Join(dir, "db", "hexlua.db"), registry: path}
}

// run executes the CLI and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestResolveCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "resolve", "num", "list of str")
	require.NoError(t, err)
	assert.Equal(t, "number\nstring[]\n", out)

	out, err = run(t, "resolve", "-v", "entity or null")
	require.NoError(t, err)
	assert.Equal(t, "entity or null => { uuid: string, name: string|nil } | nil\n", out)
}

func TestGenerateCommand(t *testing.T) {
	e := setupEnv(t)

	t.Run("stdout", func(t *testing.T) {
		out, err := run(t, "generate", e.registry, "-o", "-", "--log-level", "error")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "---@meta\n"))
		assert.Contains(t, out, "function Hex.add(num, num2) end\n")
	})

	t.Run("file with namespace", func(t *testing.T) {
		target := filepath.Join(e.dir, "out", "defs.lua")
		_, err := run(t, "generate", e.registry, "-o", target, "--namespace", "Spell", "--log-level", "error")
		require.NoError(t, err)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "function Spell.add(num, num2) end\n")
	})

	t.Run("missing registry", func(t *testing.T) {
		_, err := run(t, "generate", filepath.Join(e.dir, "nope.json"), "-o", "-")
		assert.ErrorIs(t, err, registry.ErrRegistryNotFound)
	})
}

func TestIndexAndSearchCommands(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, "search", "--db", e.db, "-r", e.registry, "wisp")
	assert.ErrorIs(t, err, ErrNotIndexed)

	out, err := run(t, "index", e.registry, "--db", e.db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 patterns, 2 operators")
	assert.Contains(t, out, "unresolved types: wisp")

	out, err = run(t, "index", e.registry, "--db", e.db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged (2 patterns)")

	out, err = run(t, "search", "--db", e.db, "-r", e.registry, "summon")
	require.NoError(t, err)
	assert.Contains(t, out, "hexal:wisp/summon")
	assert.Contains(t, out, "fun({ x: number, y: number, z: number }): wisp")

	out, err = run(t, "search", "--db", e.db, "-r", e.registry, "--mod", "hexcasting", "summon")
	require.NoError(t, err)
	assert.Equal(t, "no matches\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hexlua dev")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestConfigErrors(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, "resolve", "--config", filepath.Join(e.dir, "missing.yaml"), "num")
	assert.ErrorIs(t, err, config.ErrConfigNotFound)

	_, err = run(t, "resolve", "--log-level", "shouting", "num")
	assert.Error(t, err)
}
