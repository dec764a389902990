package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "odysseus.ini", `
[storage]
db_file = data.db
volume = 7
buffer_pool_size = 16

[log]
level = debug
debug = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data.db", cfg.Storage.DBFile)
	assert.Equal(t, uint16(7), cfg.Storage.Volume)
	assert.Equal(t, 16, cfg.Storage.BufferPoolSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadTOMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "odysseus.toml", `
[storage]
virtual_disk = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Storage.VirtualDisk)
	assert.Equal(t, Default().Storage.BufferPoolSize, cfg.Storage.BufferPoolSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeFile(t, "bad.ini", `
[storage]
buffer_pool_size = 1
`)
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "odysseus.yaml", "a: b"))
	assert.Error(t, err)
}
