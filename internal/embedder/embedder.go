// Package embedder generates embeddings for stored phones.
package embedder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/logger"
)

// Run finds all active phones missing embeddings and processes them. delay is
// the pause between API calls. It returns how many phones were embedded.
func Run(ctx context.Context, conn *sqlx.DB, emb ai.Embedder, log logger.Logger, delay time.Duration) (int, error) {
	if log == nil {
		log = logger.NewNop()
	}

	targets, err := db.GetUnembeddedPhones(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("load unembedded phones: %w", err)
	}
	if len(targets) == 0 {
		log.Info("All active phones are already embedded")
		return 0, nil
	}
	log.Info("Embedding phones", logger.Int("count", len(targets)))

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for i, name := range names {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case <-time.After(delay):
			}
		}

		blob, _, err := emb.EmbedString(ctx, targets[name])
		if err != nil {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			log.Warn("Error embedding phone", logger.String("phone", name), logger.Error(err))
			continue
		}
		if err := db.UpdateEmbedding(ctx, conn, name, blob); err != nil {
			log.Warn("Error saving embedding", logger.String("phone", name), logger.Error(err))
			continue
		}
		log.Debug("Embedded phone", logger.String("phone", name))
		count++
	}

	log.Info("Embedding finished", logger.Int("embedded", count), logger.Int("failed", len(names)-count))
	return count, nil
}
