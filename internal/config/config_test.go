package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himikid/andalus-taraweeh/internal/quran"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data/quran/quran_arabic.json", cfg.Paths.CorpusPath)
	assert.Equal(t, "data/ai/cache", cfg.Paths.TranscriptDir)
	assert.Empty(t, cfg.Redis.URI)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
paths:
  corpus_path: custom/corpus.json
redis:
  uri: redis://localhost:6379/0
telegram:
  token: from-file
  chat_id: 42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TELEGRAM_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom/corpus.json", cfg.Paths.CorpusPath)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URI)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
}

func TestLoadAlignProfileDefaults(t *testing.T) {
	cfg, err := LoadAlignProfile("")
	require.NoError(t, err)
	assert.Equal(t, quran.DefaultConfig(), cfg)
}

func TestLoadAlignProfileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "align.yaml")
	content := `
min_score: 82
min_overlap: 0.25
repeat_lookback_ayat: 2
strict_normalization: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadAlignProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 82.0, cfg.MinScore)
	assert.Equal(t, 0.25, cfg.MinOverlap)
	assert.Equal(t, 2, cfg.RepeatLookbackAyat)
	assert.True(t, cfg.StrictNormalization)
	// Untouched keys keep their defaults.
	assert.Equal(t, quran.DefaultConfig().MinConfidence, cfg.MinConfidence)
}
