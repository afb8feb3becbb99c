// Package searcher runs semantic search over the embedded phones.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/models"
)

// Defaults for Perform.
const (
	DefaultTopN     = 5
	DefaultMinScore = 0.2
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Result holds a single search match.
type Result struct {
	Phone models.Phone `json:"phone"`
	Score float32      `json:"score"`
}

// Options tune a search. Zero values take the defaults.
type Options struct {
	TopN     int
	MinScore float32
}

// Perform executes a semantic search. Results are in descending score order
// and never score below the threshold.
func Perform(ctx context.Context, conn *sqlx.DB, emb ai.Embedder, queryText string, opts Options) ([]Result, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, ErrEmptyQuery
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}
	log := logger.FromContext(ctx)

	queryVector, err := queryVector(ctx, conn, emb, queryText)
	if err != nil {
		return nil, err
	}

	phones, err := db.GetPhoneVectors(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to load phones: %w", err)
	}

	var results []Result
	for _, p := range phones {
		vec, err := ai.BytesToFloats(p.Vector)
		if err != nil {
			log.Warn("Skipping corrupt embedding", logger.String("phone", p.FullName), logger.Error(err))
			continue
		}
		score := ai.CosineSimilarity(queryVector, vec)
		if score < opts.MinScore {
			continue
		}
		results = append(results, Result{Phone: p.Phone, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.TopN {
		results = results[:opts.TopN]
	}
	return results, nil
}

// queryVector handles the cache-aside logic for query embeddings.
func queryVector(ctx context.Context, conn *sqlx.DB, emb ai.Embedder, text string) ([]float32, error) {
	log := logger.FromContext(ctx)

	blob, err := db.GetCachedQuery(ctx, conn, text)
	if err == nil {
		metrics.SemanticSearches.WithLabelValues("cache").Inc()
		return ai.BytesToFloats(blob)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("read query cache: %w", err)
	}

	log.Info("Query cache miss, calling Gemini", logger.String("query", text))
	metrics.SemanticSearches.WithLabelValues("api").Inc()
	blob, floats, err := emb.EmbedString(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// The search still succeeds when the cache write fails.
	if err := db.SaveCachedQuery(ctx, conn, text, blob); err != nil {
		log.Warn("Failed to save query to cache", logger.Error(err))
	}
	return floats, nil
}
