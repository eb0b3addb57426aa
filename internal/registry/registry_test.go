package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `{
  "patterns": {
    "hexcasting:get_caster": {
      "id": "hexcasting:get_caster",
      "name": "Mind's Reflection",
      "direction": "NORTH_EAST",
      "signature": "qaq",
      "is_per_world": false,
      "operators": [
        {
          "description": "Adds me to the stack.",
          "inputs": null,
          "outputs": "entity",
          "book_url": "https://hexcasting.hexxy.media/#patterns/basics@hexcasting:get_caster",
          "mod_id": "hexcasting"
        }
      ]
    },
    "hexcasting:add": {
      "name": "Additive Distillation",
      "direction": "NORTH_EAST",
      "signature": "waaw",
      "is_per_world": false,
      "operators": [
        {
          "description": "Adds two numbers.",
          "inputs": "num, num",
          "outputs": "num",
          "book_url": "https://hexcasting.hexxy.media/#patterns/math@hexcasting:add",
          "mod_id": "hexcasting"
        }
      ]
    }
  }
}`

func TestDecode(t *testing.T) {
	reg, err := Decode(strings.NewReader(sampleRegistry))
	require.NoError(t, err)
	require.Len(t, reg.Patterns, 2)

	caster := reg.Patterns["hexcasting:get_caster"]
	assert.Equal(t, "Mind's Reflection", caster.Name)
	require.Len(t, caster.Operators, 1)
	assert.Nil(t, caster.Operators[0].Inputs)
	require.NotNil(t, caster.Operators[0].Outputs)
	assert.Equal(t, "entity", *caster.Operators[0].Outputs)
	assert.NoError(t, caster.Validate())

	// ID filled in from the key
	assert.Equal(t, "hexcasting:add", reg.Patterns["hexcasting:add"].ID)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("{not json"))
	assert.ErrorIs(t, err, ErrInvalidRegistry)

	_, err = Decode(strings.NewReader(`{"other": {}}`))
	assert.ErrorIs(t, err, ErrInvalidRegistry)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Patterns, 2)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrRegistryNotFound)
}

func TestSorted(t *testing.T) {
	reg, err := Decode(strings.NewReader(sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, []string{"hexcasting:add", "hexcasting:get_caster"}, SortedIDs(reg))

	patterns := Sorted(reg)
	require.Len(t, patterns, 2)
	assert.Equal(t, "Additive Distillation", patterns[0].Name)
}
