package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultCodecAddr, cfg.CodecAddr)
	assert.Equal(t, DefaultCodecTimeout, cfg.Timeout())
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultSplit, cfg.Split)
	assert.Equal(t, "default", cfg.Source("codec_addr"))
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "eval.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yml")
	require.NoError(t, os.WriteFile(path, []byte("codec_addr: encoder:9000\nchunk_size: 8\ncodec_timeout: 5s\n"), 0o644))
	t.Setenv("DEFEVAL_CHUNK_SIZE", "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "encoder:9000", cfg.CodecAddr)
	assert.Equal(t, "file", cfg.Source("codec_addr"))
	assert.Equal(t, 16, cfg.ChunkSize)
	assert.Equal(t, "environment", cfg.Source("chunk_size"))
	assert.Equal(t, 5*time.Second, cfg.Timeout())
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yml")
	require.NoError(t, os.WriteFile(path, []byte("codec_timeout: soon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("codec_addr: [\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestHistoryPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("exp", DefaultHistoryDB), cfg.HistoryPath("exp"))

	cfg.HistoryDB = "/var/lib/defeval/runs.db"
	assert.Equal(t, "/var/lib/defeval/runs.db", cfg.HistoryPath("exp"))
}

func TestFormatJSON(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"codec_addr"`)
	assert.Contains(t, cfg.FormatText(), "chunk_size")
}
