package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds infrastructure config from env vars and the .env file.
type AppConfig struct {
	DBPath         string
	ConfigPath     string // Path to the YAML site config
	DataDir        string
	Port           int
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	MaxRetries     int
	LogLevel       string
	Debug          bool
}

// Addr returns the listen address for the web UI.
func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SiteConfig holds all target-site specific settings (from YAML).
type SiteConfig struct {
	Name               string        `yaml:"name"`
	SearchURL          string        `yaml:"search_url"`
	Host               string        `yaml:"host"`
	LinkPattern        string        `yaml:"link_pattern"`
	Fetcher            string        `yaml:"fetcher"`
	UserAgent          string        `yaml:"user_agent"`
	PageTimeout        time.Duration `yaml:"page_timeout"`
	RequestDelay       time.Duration `yaml:"request_delay"`
	RawDumpPath        string        `yaml:"raw_dump_path"`
	Selectors          Selectors     `yaml:"selectors"`
	DisallowedKeywords []string      `yaml:"disallowed_keywords"`
}

// Selectors are ordered CSS selector lists; the first one yielding text wins.
type Selectors struct {
	PopupButton string   `yaml:"popup_button"`
	PopupText   string   `yaml:"popup_text"`
	ProductLink string   `yaml:"product_link"`
	Name        []string `yaml:"name"`
	Price       []string `yaml:"price"`
	Rating      []string `yaml:"rating"`
	Features    string   `yaml:"features"`
	Description []string `yaml:"description"`
}

const (
	FetcherBrowser = "browser"
	FetcherHTTP    = "http"
)

// LoadEnvFiles loads key-value env files. ENV_FILE, when set, is the only file
// read; otherwise .env.local is read before .env so its values take priority.
// Variables already present in the process environment are never overridden.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// GetAppConfig reads infrastructure settings from environment variables.
func GetAppConfig() (AppConfig, error) {
	cfg := AppConfig{
		DBPath:         envOr("DB_PATH", "./local-data/phones.db"),
		ConfigPath:     envOr("CONFIG_PATH", "config.yaml"),
		DataDir:        envOr("DATA_DIR", "./local-data"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-004"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
	}

	// GOOGLE_API_KEY is accepted for older .env files.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}

	var err error
	if cfg.Port, err = envInt("PORT", 8080); err != nil {
		return AppConfig{}, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return AppConfig{}, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxRetries, err = envInt("GEMINI_MAX_RETRIES", 3); err != nil {
		return AppConfig{}, err
	}
	if cfg.MaxRetries < 0 {
		return AppConfig{}, fmt.Errorf("GEMINI_MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}
	cfg.Debug, _ = strconv.ParseBool(os.Getenv("DEBUG"))

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

// DefaultSiteConfig returns the built-in Flipkart configuration.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		Name:         "Flipkart",
		SearchURL:    "https://www.flipkart.com/search?q=%s",
		Host:         "flipkart.com",
		LinkPattern:  "/p/",
		Fetcher:      FetcherBrowser,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		PageTimeout:  90 * time.Second,
		RequestDelay: 2 * time.Second,
		Selectors: Selectors{
			PopupButton: "button",
			PopupText:   "✕",
			ProductLink: "a[href*='/p/']",
			Name:        []string{"span.VU-ZEz", "span.B_NuCI", "div._4rR01T", "span[class*='product-title']"},
			Price:       []string{".Nx9bqj.CxhGGd", ".Nx9bqj", ".CxhGGd", "div._30jeq3", "div._1_WHN1", "div._16Jk6d"},
			Rating:      []string{".ipqd2A", "div._3LWZlK", "div._2d4LTz", ".XQDdHH._6er70b"},
			Features:    ".xFVion ._7eSDEz",
			Description: []string{"div._4gvKMe"},
		},
		DisallowedKeywords: []string{"back cover", "case", "screen guard", "charger"},
	}
}

// LoadSiteConfig reads the YAML file on top of the defaults. A missing file
// yields the defaults unchanged.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	cfg := DefaultSiteConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site config '%s': %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the scraper cannot work without.
func (c *SiteConfig) Validate() error {
	if !strings.Contains(c.SearchURL, "%s") {
		return fmt.Errorf("search_url must contain a %%s placeholder for the query")
	}
	if c.Selectors.ProductLink == "" {
		return fmt.Errorf("selectors.product_link is required")
	}
	if len(c.Selectors.Name) == 0 || len(c.Selectors.Price) == 0 {
		return fmt.Errorf("selectors.name and selectors.price need at least one selector")
	}
	switch c.Fetcher {
	case FetcherBrowser, FetcherHTTP:
	default:
		return fmt.Errorf("fetcher must be %q or %q, got %q", FetcherBrowser, FetcherHTTP, c.Fetcher)
	}
	return nil
}
