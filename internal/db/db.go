package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/phone-advisor/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Connect opens the SQLite database and ensures the schema exists.
// It applies WAL mode and a busy timeout to avoid "database locked" errors.
func Connect(dbPath string) (*sqlx.DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return db, nil
}

func createSchema(db *sqlx.DB) error {
	phonesTable := `
	CREATE TABLE IF NOT EXISTS phones (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  full_name TEXT UNIQUE NOT NULL,
	  brand TEXT NOT NULL DEFAULT '',
	  model TEXT NOT NULL DEFAULT '',
	  price INTEGER NOT NULL DEFAULT 0,
	  rating REAL NOT NULL DEFAULT 0,
	  ram INTEGER NOT NULL DEFAULT 0,
	  storage INTEGER NOT NULL DEFAULT 0,
	  camera_mp INTEGER NOT NULL DEFAULT 0,
	  battery_mah INTEGER NOT NULL DEFAULT 0,
	  display_inches REAL NOT NULL DEFAULT 0,
	  processor TEXT NOT NULL DEFAULT '',
	  category TEXT NOT NULL DEFAULT '',
	  source TEXT NOT NULL DEFAULT '',
	  url TEXT NOT NULL DEFAULT '',
	  description TEXT NOT NULL DEFAULT '',
	  first_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  last_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  is_active INTEGER DEFAULT 1,
	  embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_phones_is_active ON phones(is_active);
	CREATE INDEX IF NOT EXISTS idx_phones_brand ON phones(brand);
	`
	if _, err := db.Exec(phonesTable); err != nil {
		return err
	}

	// Local cache of query embeddings for semantic search.
	historyTable := `
	CREATE TABLE IF NOT EXISTS search_history (
		query_text TEXT PRIMARY KEY,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(historyTable); err != nil {
		return err
	}

	runsTable := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  query_text TEXT NOT NULL,
	  phone_count INTEGER NOT NULL,
	  scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scrape_runs_query ON scrape_runs(query_text);
	`
	_, err := db.Exec(runsTable)
	return err
}

const phoneColumns = `full_name, brand, model, price, rating, ram, storage, camera_mp, battery_mah,
	display_inches, processor, category, source, url, description`

// SavePhones upserts phones keyed on full name and marks them active.
// A stored embedding survives only if the embedded text is unchanged.
func SavePhones(ctx context.Context, db *sqlx.DB, phones []models.Phone) (int64, error) {
	return ReplacePhones(ctx, db, phones, false)
}

// ReplacePhones is SavePhones that, with fresh set, also deactivates every
// phone missing from the batch. Both happen in one transaction, so a failed
// upsert leaves the stored phones as they were.
func ReplacePhones(ctx context.Context, db *sqlx.DB, phones []models.Phone, fresh bool) (int64, error) {
	upsertSQL := `
	INSERT INTO phones (` + phoneColumns + `, last_scraped_at, is_active)
	VALUES (
	  :full_name, :brand, :model, :price, :rating, :ram, :storage, :camera_mp, :battery_mah,
	  :display_inches, :processor, :category, :source, :url, :description, CURRENT_TIMESTAMP, 1
	) ON CONFLICT(full_name) DO UPDATE SET
	  embedding = CASE
	    WHEN phones.brand = excluded.brand AND phones.model = excluded.model
	     AND phones.processor = excluded.processor AND phones.description = excluded.description
	    THEN phones.embedding ELSE NULL END,
	  brand = excluded.brand,
	  model = excluded.model,
	  price = excluded.price,
	  rating = excluded.rating,
	  ram = excluded.ram,
	  storage = excluded.storage,
	  camera_mp = excluded.camera_mp,
	  battery_mah = excluded.battery_mah,
	  display_inches = excluded.display_inches,
	  processor = excluded.processor,
	  category = excluded.category,
	  source = excluded.source,
	  url = excluded.url,
	  description = excluded.description,
	  last_scraped_at = CURRENT_TIMESTAMP,
	  is_active = 1;
	`

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if fresh {
		if _, err := tx.ExecContext(ctx, `UPDATE phones SET is_active = 0 WHERE is_active = 1;`); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to mark phones as inactive: %w", err)
		}
	}
	stmt, err := tx.PrepareNamedContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64
	for _, p := range phones {
		if strings.TrimSpace(p.FullName) == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, p)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to upsert %s: %w", p.FullName, err)
		}
		rows, _ := res.RowsAffected()
		totalAffected += rows
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return totalAffected, nil
}

// GetActivePhones returns every active phone, newest first.
func GetActivePhones(ctx context.Context, db *sqlx.DB) ([]models.Phone, error) {
	var phones []models.Phone
	err := db.SelectContext(ctx, &phones, `SELECT `+phoneColumns+` FROM phones WHERE is_active = 1 ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	return phones, nil
}

// CountActivePhones returns the number of active phones.
func CountActivePhones(ctx context.Context, db *sqlx.DB) (int, error) {
	var n int
	err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM phones WHERE is_active = 1`)
	return n, err
}

// GetPhone looks up an active phone by its exact full name.
func GetPhone(ctx context.Context, db *sqlx.DB, fullName string) (models.Phone, error) {
	var p models.Phone
	err := db.GetContext(ctx, &p, `SELECT `+phoneColumns+` FROM phones WHERE is_active = 1 AND full_name = ?`, fullName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Phone{}, ErrNotFound
	}
	return p, err
}

// --- Embedding & Search Helpers ---

// GetUnembeddedPhones returns full name -> text to embed for active phones
// missing embeddings.
func GetUnembeddedPhones(ctx context.Context, db *sqlx.DB) (map[string]string, error) {
	var phones []models.Phone
	err := db.SelectContext(ctx, &phones, `SELECT `+phoneColumns+` FROM phones WHERE is_active = 1 AND embedding IS NULL`)
	if err != nil {
		return nil, err
	}
	results := make(map[string]string, len(phones))
	for _, p := range phones {
		results[p.FullName] = p.SearchText()
	}
	return results, nil
}

// UpdateEmbedding saves the generated vector blob for a phone.
func UpdateEmbedding(ctx context.Context, db *sqlx.DB, fullName string, embedding []byte) error {
	_, err := db.ExecContext(ctx, "UPDATE phones SET embedding = ? WHERE full_name = ?", embedding, fullName)
	return err
}

// PhoneVector is an active phone together with its stored embedding.
type PhoneVector struct {
	models.Phone
	Vector []byte `db:"embedding"`
}

// GetPhoneVectors returns all active phones that have embeddings.
func GetPhoneVectors(ctx context.Context, db *sqlx.DB) ([]PhoneVector, error) {
	var results []PhoneVector
	err := db.SelectContext(ctx, &results,
		`SELECT `+phoneColumns+`, embedding FROM phones WHERE is_active = 1 AND embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetCachedQuery returns a previously stored query vector.
func GetCachedQuery(ctx context.Context, db *sqlx.DB, text string) ([]byte, error) {
	var blob []byte
	err := db.GetContext(ctx, &blob, "SELECT embedding FROM search_history WHERE query_text = ?", text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return blob, err
}

// SaveCachedQuery stores a query and its vector in the history table.
func SaveCachedQuery(ctx context.Context, db *sqlx.DB, text string, blob []byte) error {
	_, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO search_history (query_text, embedding) VALUES (?, ?)", text, blob)
	return err
}

// --- History Management for search ---

type HistoryEntry struct {
	QueryText string    `db:"query_text"`
	CreatedAt time.Time `db:"created_at"`
}

// ListSearchHistory returns all cached queries, newest first.
func ListSearchHistory(ctx context.Context, db *sqlx.DB) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := db.SelectContext(ctx, &entries, "SELECT query_text, created_at FROM search_history ORDER BY created_at DESC, query_text")
	return entries, err
}

// ClearSearchHistory removes a specific query from the cache.
func ClearSearchHistory(ctx context.Context, db *sqlx.DB, queryText string) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM search_history WHERE query_text = ?", queryText)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAllSearchHistory wipes the entire cache.
func ClearAllSearchHistory(ctx context.Context, db *sqlx.DB) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM search_history")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Scrape runs ---

type ScrapeRun struct {
	QueryText  string    `db:"query_text"`
	PhoneCount int       `db:"phone_count"`
	ScrapedAt  time.Time `db:"scraped_at"`
}

// RecordScrapeRun remembers that a query was scraped.
func RecordScrapeRun(ctx context.Context, db *sqlx.DB, query string, count int) error {
	_, err := db.ExecContext(ctx, "INSERT INTO scrape_runs (query_text, phone_count) VALUES (?, ?)", query, count)
	return err
}

// LastScrapeRun returns the most recent run for query.
func LastScrapeRun(ctx context.Context, db *sqlx.DB, query string) (ScrapeRun, error) {
	var run ScrapeRun
	err := db.GetContext(ctx, &run,
		"SELECT query_text, phone_count, scraped_at FROM scrape_runs WHERE query_text = ? ORDER BY scraped_at DESC, id DESC LIMIT 1", query)
	if errors.Is(err, sql.ErrNoRows) {
		return ScrapeRun{}, ErrNotFound
	}
	return run, err
}
