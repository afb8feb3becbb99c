package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_PATH", "CONFIG_PATH", "DATA_DIR", "PORT", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"GEMINI_MODEL", "EMBEDDING_MODEL", "GEMINI_MAX_RETRIES", "LOG_LEVEL", "DEBUG", "ENV_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestGetAppConfig_Defaults(t *testing.T) {
	clearAppEnv(t)

	cfg, err := GetAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "./local-data/phones.db", cfg.DBPath)
	assert.Equal(t, "config.yaml", cfg.ConfigPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestGetAppConfig_GoogleKeyFallback(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("GOOGLE_API_KEY", "legacy-key")

	cfg, err := GetAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.GeminiAPIKey)

	t.Setenv("GEMINI_API_KEY", "new-key")
	cfg, err = GetAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.GeminiAPIKey)
}

func TestGetAppConfig_InvalidPort(t *testing.T) {
	clearAppEnv(t)

	t.Setenv("PORT", "abc")
	_, err := GetAppConfig()
	assert.ErrorContains(t, err, "PORT")

	t.Setenv("PORT", "70000")
	_, err = GetAppConfig()
	assert.ErrorContains(t, err, "between 1 and 65535")
}

func TestLoadEnvFiles_ReadsEnvFile(t *testing.T) {
	clearAppEnv(t)
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\nGEMINI_API_KEY=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv sets variables on the process; make sure they are cleaned up.
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("GEMINI_API_KEY")
	})
	os.Unsetenv("PORT")
	os.Unsetenv("GEMINI_API_KEY")

	require.NoError(t, LoadEnvFiles())
	cfg, err := GetAppConfig()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "from-file", cfg.GeminiAPIKey)
}

func TestLoadEnvFiles_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, LoadEnvFiles())
}

func TestLoadSiteConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadSiteConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSiteConfig(), cfg)
}

func TestLoadSiteConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
search_url: "http://localhost:9999/search?q=%s"
fetcher: http
request_delay: 250ms
selectors:
  name: ["h1.title"]
disallowed_keywords: ["refurbished"]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := LoadSiteConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/search?q=%s", cfg.SearchURL)
	assert.Equal(t, FetcherHTTP, cfg.Fetcher)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, []string{"h1.title"}, cfg.Selectors.Name)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultSiteConfig().Selectors.Price, cfg.Selectors.Price)
	assert.Equal(t, []string{"refurbished"}, cfg.DisallowedKeywords)
}

func TestLoadSiteConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_url: \"https://example.com/search\"\n"), 0o600))

	_, err := LoadSiteConfig(path)
	assert.ErrorContains(t, err, "placeholder")
}
