package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PRIMARY_ENGINE", "GEMINI_API_KEY", "API_KEY", "PDF_MAX_SIZE_MB", "PDF_PAGE_CAP", "REQUEST_TIMEOUT", "MIN_INPUT_CHARS"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "gemini", cfg.Providers.Engine)
	assert.Equal(t, int64(5<<20), cfg.Acquisition.MaxFileBytes)
	assert.Equal(t, 20, cfg.Acquisition.PageCap)
	assert.Equal(t, 50, cfg.Acquisition.MinChars)
	assert.Equal(t, 100, cfg.Generation.MinInputChars)
	assert.Equal(t, 60*time.Second, cfg.Generation.RequestTimeout)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, 4, cfg.Generation.MaxInflight)
	assert.Empty(t, cfg.Providers.Active().APIKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PRIMARY_ENGINE", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "  sk-test ")
	t.Setenv("PDF_MAX_SIZE_MB", "10")
	t.Setenv("REQUEST_TIMEOUT", "bogus")

	cfg := FromEnv()

	assert.Equal(t, "openai", cfg.Providers.Engine)
	assert.Equal(t, "sk-test", cfg.Providers.Active().APIKey)
	assert.Equal(t, int64(10<<20), cfg.Acquisition.MaxFileBytes)
	assert.Equal(t, 60*time.Second, cfg.Generation.RequestTimeout, "unparsable duration falls back to default")
}

func TestGeminiKeyFallsBackToAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")

	cfg := FromEnv()
	assert.Equal(t, "legacy-key", cfg.Providers.Gemini.APIKey)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PDF_PAGE_CAP=7\n"), 0o644))
	t.Setenv("PDF_PAGE_CAP", "")
	os.Unsetenv("PDF_PAGE_CAP")
	t.Cleanup(func() { os.Unsetenv("PDF_PAGE_CAP") })

	cfg := Load(path)
	assert.Equal(t, 7, cfg.Acquisition.PageCap)
}
