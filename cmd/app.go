package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/scraper"
)

func openDB() (*sqlx.DB, error) {
	conn, err := db.Connect(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return conn, nil
}

func newAIClient(ctx context.Context) (*ai.Client, error) {
	return ai.NewClient(ctx, ai.Config{
		APIKey:         appCfg.GeminiAPIKey,
		Model:          appCfg.GeminiModel,
		EmbeddingModel: appCfg.EmbeddingModel,
		MaxRetries:     appCfg.MaxRetries,
		Logger:         log,
	})
}

// optionalAI returns nil when Gemini is not configured, so callers fall back
// to rule-based answers. A malformed key is still reported.
func optionalAI(ctx context.Context) *ai.Client {
	client, _ := optionalAIWithErr(ctx)
	return client
}

// optionalAIWithErr is optionalAI that also returns why Gemini is unavailable.
func optionalAIWithErr(ctx context.Context) (*ai.Client, error) {
	client, err := newAIClient(ctx)
	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, ai.ErrMissingAPIKey):
		log.Warn("GEMINI_API_KEY not set; using rule-based answers")
	default:
		log.Warn("Gemini unavailable; using rule-based answers", logger.Error(err))
	}
	return nil, err
}

// generator keeps a nil client from becoming a non-nil interface.
func generator(client *ai.Client) ai.Generator {
	if client == nil {
		return nil
	}
	return client
}

func embedderOf(client *ai.Client) ai.Embedder {
	if client == nil {
		return nil
	}
	return client
}

// newScraper builds the scraper from the site config. The returned close
// function releases the browser.
func newScraper(client *ai.Client) (*scraper.Scraper, func(), error) {
	fetcher, err := scraper.NewFetcher(siteCfg, log)
	if err != nil {
		return nil, nil, err
	}
	s := scraper.New(siteCfg, fetcher, scraper.NewSpecExtractor(generator(client), log), log)
	return s, func() {
		if err := fetcher.Close(); err != nil {
			log.Warn("Failed to close fetcher", logger.Error(err))
		}
	}, nil
}
