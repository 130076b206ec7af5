package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse(`
[vm]
max-steps = 5000
jump-table = true

[output]
trace = true
`)
	require.NoError(t, err)
	assert.Equal(t, 1000, c.VM.MaxCallDepth)
	assert.Equal(t, 5000, c.VM.MaxSteps)
	assert.True(t, c.VM.JumpTable)
	assert.True(t, c.VM.ChainCause)
	assert.True(t, c.Output.Color)
	assert.True(t, c.Output.Trace)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[vm\n",
		"unknown key": "[vm]\nmax-stack = 3\n",
		"depth":       "[vm]\nmax-call-depth = 0\n",
		"steps":       "[vm]\nmax-steps = -1\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[vm]\nchain-cause = false\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.VM.ChainCause)
	assert.Equal(t, path, c.Path)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestLoadDefaultFileIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}
