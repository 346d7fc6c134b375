package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "localhost:7233", cfg.Server.Addr)
	require.Equal(t, 3, cfg.Bench.Iterations)
	require.Positive(t, cfg.Bench.Workers)
	require.False(t, cfg.Log.Enable)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = "127.0.0.1:9000"

[bench]
iterations = 5
ops = 1000
workers = 2
max_size = 512

[log]
enable = true
path = "alloc.log"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 5, cfg.Bench.Iterations)
	require.Equal(t, 1000, cfg.Bench.Ops)
	require.Equal(t, 2, cfg.Bench.Workers)
	require.Equal(t, 512, cfg.Bench.MaxSize)
	require.True(t, cfg.Log.Enable)
	require.Equal(t, "alloc.log", cfg.Log.Path)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mempool.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \"127.0.0.1:9001\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9001", cfg.Server.Addr)
	require.Equal(t, Default().Bench, cfg.Bench)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bench]\nworkers = -1\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
