package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzersFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Staticcheck": ["SA4006", "SA9999"]}`), 0o644))
	t.Setenv("STATICLINT_CONFIG", path)

	cfg, err := loadConfig()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, a := range analyzers(cfg) {
		names[a.Name] = true
	}

	assert.True(t, names["noexit"])
	assert.True(t, names["nilerr"])
	assert.True(t, names["SA4006"])
	assert.False(t, names["SA9999"])
	assert.False(t, names["SA1000"])
}
