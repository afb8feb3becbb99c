// Package catalog fetches phones from storage and narrows them down by
// brand, budget and hardware thresholds.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/models"
)

// Default bounds reported by PriceRange for an empty catalog.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 200000
)

// PhoneScraper is the part of the scraper the catalog needs.
type PhoneScraper interface {
	Scrape(ctx context.Context, query string, max int) ([]models.Phone, error)
}

// Catalog is the data agent: it owns the stored phones.
type Catalog struct {
	db  *sqlx.DB
	gen ai.Generator
	log logger.Logger
}

// New returns a catalog. gen may be nil, in which case insights use a template.
func New(conn *sqlx.DB, gen ai.Generator, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.NewNop()
	}
	return &Catalog{db: conn, gen: gen, log: log}
}

// Phones returns every active phone.
func (c *Catalog) Phones(ctx context.Context) ([]models.Phone, error) {
	return db.GetActivePhones(ctx, c.db)
}

// Phone returns the stored phone with the exact name, or the first whose
// name contains it.
func (c *Catalog) Phone(ctx context.Context, name string) (models.Phone, error) {
	p, err := db.GetPhone(ctx, c.db, name)
	if err == nil || !errors.Is(err, db.ErrNotFound) {
		return p, err
	}
	phones, err := c.Phones(ctx)
	if err != nil {
		return models.Phone{}, err
	}
	if p, ok := Details(phones, name); ok {
		return p, nil
	}
	return models.Phone{}, db.ErrNotFound
}

// Ingest stores scraped phones. With fresh set, phones not in this batch are
// marked inactive. On error nothing changes.
func (c *Catalog) Ingest(ctx context.Context, phones []models.Phone, fresh bool) (int64, error) {
	saved, err := db.ReplacePhones(ctx, c.db, phones, fresh)
	if err != nil {
		return 0, fmt.Errorf("failed to save phones: %w", err)
	}
	if fresh {
		c.log.Info("Replaced active phones", logger.Int64("saved", saved))
	}
	return saved, nil
}

// RefreshOptions control Refresh.
type RefreshOptions struct {
	Max    int
	MaxAge time.Duration // reuse a scrape of the same query younger than this
	Force  bool          // ignore MaxAge
	Fresh  bool          // deactivate phones missing from this scrape
}

// RefreshResult describes what Refresh did.
type RefreshResult struct {
	Phones []models.Phone
	Saved  int64
	Cached bool
	At     time.Time
}

// Refresh scrapes query and stores the result, unless the same query was
// scraped within MaxAge.
func (c *Catalog) Refresh(ctx context.Context, s PhoneScraper, query string, opts RefreshOptions) (RefreshResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return RefreshResult{}, errors.New("scrape query must not be empty")
	}

	if !opts.Force && opts.MaxAge > 0 {
		run, err := db.LastScrapeRun(ctx, c.db, query)
		switch {
		case err == nil && time.Since(run.ScrapedAt) < opts.MaxAge:
			c.log.Info("Using cached scrape", logger.String("query", query), logger.Duration("age", time.Since(run.ScrapedAt)))
			metrics.ScrapeRuns.WithLabelValues("cached").Inc()
			phones, err := c.Phones(ctx)
			return RefreshResult{Phones: phones, Cached: true, At: run.ScrapedAt}, err
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return RefreshResult{}, err
		}
	}

	phones, err := s.Scrape(ctx, query, opts.Max)
	if err != nil {
		return RefreshResult{}, err
	}
	if len(phones) == 0 {
		c.log.Warn("No phones found during scraping", logger.String("query", query))
		return RefreshResult{At: time.Now()}, nil
	}

	saved, err := c.Ingest(ctx, phones, opts.Fresh)
	if err != nil {
		return RefreshResult{}, err
	}
	if err := db.RecordScrapeRun(ctx, c.db, query, len(phones)); err != nil {
		c.log.Warn("Failed to record scrape run", logger.Error(err))
	}
	return RefreshResult{Phones: phones, Saved: saved, At: time.Now()}, nil
}

// Criteria are spec thresholds. Zero values and an empty brand list match anything.
type Criteria struct {
	Brands     []string
	MinPrice   int
	MaxPrice   int
	MinRAM     int
	MinCamera  int
	MinBattery int
	MinStorage int
	MinDisplay float64
}

// Matches reports whether p meets every stated threshold.
func (c Criteria) Matches(p models.Phone) bool {
	if len(c.Brands) > 0 && !contains(c.Brands, p.Brand) {
		return false
	}
	switch {
	case c.MinPrice > 0 && p.Price < c.MinPrice,
		c.MaxPrice > 0 && p.Price > c.MaxPrice,
		c.MinRAM > 0 && p.RAM < c.MinRAM,
		c.MinCamera > 0 && p.CameraMP < c.MinCamera,
		c.MinBattery > 0 && p.BatteryMAh < c.MinBattery,
		c.MinStorage > 0 && p.Storage < c.MinStorage,
		c.MinDisplay > 0 && p.DisplayInches < c.MinDisplay:
		return false
	}
	return true
}

// FilterBySpecs returns the phones meeting every threshold in c, in input order.
func FilterBySpecs(phones []models.Phone, c Criteria) []models.Phone {
	out := make([]models.Phone, 0, len(phones))
	for _, p := range phones {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Query is a name search with optional spec limits.
type Query struct {
	Text       string
	Brand      string
	MinRAM     int
	MaxRAM     int
	MinCamera  int
	MinBattery int
}

// Search matches Text case-insensitively against the full name or model and
// Brand as a case-insensitive substring of the brand.
func Search(phones []models.Phone, q Query) []models.Phone {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	brand := strings.ToLower(strings.TrimSpace(q.Brand))

	out := make([]models.Phone, 0, len(phones))
	for _, p := range phones {
		if text != "" && !strings.Contains(strings.ToLower(p.FullName), text) &&
			!strings.Contains(strings.ToLower(p.Model), text) {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Brand), brand) {
			continue
		}
		if (q.MinRAM > 0 && p.RAM < q.MinRAM) ||
			(q.MaxRAM > 0 && p.RAM > q.MaxRAM) ||
			(q.MinCamera > 0 && p.CameraMP < q.MinCamera) ||
			(q.MinBattery > 0 && p.BatteryMAh < q.MinBattery) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Brands lists the distinct brands, sorted.
func Brands(phones []models.Phone) []string {
	seen := make(map[string]bool)
	var brands []string
	for _, p := range phones {
		if p.Brand != "" && !seen[p.Brand] {
			seen[p.Brand] = true
			brands = append(brands, p.Brand)
		}
	}
	sort.Strings(brands)
	return brands
}

// PriceRange returns the lowest and highest price, or the defaults when
// there are no phones.
func PriceRange(phones []models.Phone) (lo, hi int) {
	if len(phones) == 0 {
		return DefaultMinPrice, DefaultMaxPrice
	}
	lo, hi = phones[0].Price, phones[0].Price
	for _, p := range phones[1:] {
		lo = min(lo, p.Price)
		hi = max(hi, p.Price)
	}
	return lo, hi
}

// Details returns the first phone whose full name contains name, ignoring case.
func Details(phones []models.Phone, name string) (models.Phone, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return models.Phone{}, false
	}
	for _, p := range phones {
		if strings.Contains(strings.ToLower(p.FullName), needle) {
			return p, true
		}
	}
	return models.Phone{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

const insightPrompt = `Provide a brief, compelling insight about this phone (max 3 lines):

%s - %s
Specs: %dGB RAM, %dGB Storage, %dMP Camera, %dmAh Battery
Display: %.1f", Processor: %s
Rating: %.1f/5, Category: %s

Focus on:
1. Real-world performance
2. Who should buy it
3. Best feature`

// Insight returns a short AI take on the phone, or a template when AI is
// unavailable.
func (c *Catalog) Insight(ctx context.Context, p models.Phone) string {
	if c.gen == nil {
		return DefaultInsight(p)
	}
	prompt := fmt.Sprintf(insightPrompt,
		p.FullName, models.FormatINR(p.Price),
		p.RAM, p.Storage, p.CameraMP, p.BatteryMAh,
		p.DisplayInches, p.Processor,
		p.Rating, p.CategoryOr(models.CategoryFlagship),
	)
	text, err := c.gen.Generate(ctx, ai.Request{Prompt: prompt})
	if err != nil {
		c.log.Error("Error getting phone insight", logger.String("phone", p.FullName), logger.Error(err))
		metrics.Fallbacks.WithLabelValues("catalog").Inc()
		return DefaultInsight(p)
	}
	return text
}

// DefaultInsight is the template insight.
func DefaultInsight(p models.Phone) string {
	verdict := "Premium experience"
	if p.Price < 30000 {
		verdict = "Perfect for everyday use"
	}
	return fmt.Sprintf("**%s** (%s)\nAt %s, this phone offers %dGB RAM and %dMP camera.\nRated %.1f/5 - %s",
		p.FullName, p.CategoryOr(models.CategoryFlagship),
		models.FormatINR(p.Price), p.RAM, p.CameraMP,
		p.Rating, verdict,
	)
}
