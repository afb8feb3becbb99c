package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mspro-labs/phone-advisor/internal/config"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/models"
)

// Scraper turns a search query into structured phones.
type Scraper struct {
	cfg     *config.SiteConfig
	fetcher Fetcher
	specs   *SpecExtractor
	log     logger.Logger
}

func New(cfg *config.SiteConfig, fetcher Fetcher, specs *SpecExtractor, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.NewNop()
	}
	if specs == nil {
		specs = NewSpecExtractor(nil, log)
	}
	return &Scraper{cfg: cfg, fetcher: fetcher, specs: specs, log: log}
}

// SearchURL fills the site's search template with the query.
func (s *Scraper) SearchURL(query string) string {
	return fmt.Sprintf(s.cfg.SearchURL, url.QueryEscape(strings.TrimSpace(query)))
}

// Scrape fetches up to max product pages for query and returns the phones
// with a positive price. A failing product page is logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, query string, max int) ([]models.Phone, error) {
	raw, err := s.ScrapeRaw(ctx, query, max)
	if err != nil {
		metrics.ScrapeRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if s.cfg.RawDumpPath != "" {
		if err := DumpRaw(s.cfg.RawDumpPath, raw); err != nil {
			s.log.Warn("Failed to write raw dump", logger.String("path", s.cfg.RawDumpPath), logger.Error(err))
		}
	}

	phones := s.Structure(ctx, raw)
	metrics.ScrapeRuns.WithLabelValues("ok").Inc()
	metrics.PhonesScraped.Add(float64(len(phones)))
	s.log.Info("Scrape complete",
		logger.String("query", query),
		logger.Int("pages", len(raw)),
		logger.Int("phones", len(phones)),
	)
	return phones, nil
}

// ScrapeRaw fetches the search page and every product page it links to.
func (s *Scraper) ScrapeRaw(ctx context.Context, query string, max int) ([]RawProduct, error) {
	searchURL := s.SearchURL(query)
	s.log.Info("Scraping search page", logger.String("url", searchURL))

	html, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}
	links, err := ParseSearchLinks(html, searchURL, s.cfg, max)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	s.log.Info("Found product links", logger.Int("count", len(links)))

	products := make([]RawProduct, 0, len(links))
	for i, link := range links {
		if i > 0 && s.cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return products, ctx.Err()
			case <-time.After(s.cfg.RequestDelay):
			}
		}
		s.log.Debug("Scraping product", logger.Int("n", i+1), logger.Int("of", len(links)), logger.String("url", link))

		page, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return products, ctx.Err()
			}
			s.log.Error("Error scraping product", logger.String("url", link), logger.Error(err))
			metrics.ProductsSkipped.WithLabelValues("fetch").Inc()
			continue
		}
		p, err := ParseProduct(page, link, s.cfg.Selectors)
		if err != nil {
			s.log.Error("Error parsing product", logger.String("url", link), logger.Error(err))
			metrics.ProductsSkipped.WithLabelValues("parse").Inc()
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Structure converts raw products into phones. Products without a positive
// price, with a disallowed keyword in the name, or duplicating an earlier
// name are dropped.
func (s *Scraper) Structure(ctx context.Context, raw []RawProduct) []models.Phone {
	var phones []models.Phone
	seen := make(map[string]bool)
	for _, r := range raw {
		price := parsePrice(r.Price)
		if price <= 0 {
			s.log.Debug("Skipping product without price", logger.String("name", r.Name))
			metrics.ProductsSkipped.WithLabelValues("price").Inc()
			continue
		}
		if kw := s.disallowed(r.Name); kw != "" {
			s.log.Debug("Skipping product by keyword", logger.String("keyword", kw), logger.String("name", r.Name))
			metrics.ProductsSkipped.WithLabelValues("keyword").Inc()
			continue
		}
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true

		specs := s.specs.Extract(ctx, r.Name, r.Features)
		brand, model := models.SplitName(r.Name)
		phones = append(phones, models.Phone{
			FullName:      r.Name,
			Brand:         brand,
			Model:         model,
			Price:         price,
			Rating:        parseRating(r.Rating),
			RAM:           specs.RAM,
			Storage:       specs.Storage,
			CameraMP:      specs.CameraMP,
			BatteryMAh:    specs.BatteryMAh,
			DisplayInches: specs.DisplayInches,
			Processor:     specs.Processor,
			Category:      models.Categorize(price),
			Source:        s.cfg.Name,
			URL:           r.URL,
			Description:   r.Description,
		})
	}
	return phones
}

func (s *Scraper) disallowed(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range s.cfg.DisallowedKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// DumpRaw writes raw products as indented JSON.
func DumpRaw(path string, raw []RawProduct) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRaw reads a file written by DumpRaw.
func LoadRaw(path string) ([]RawProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []RawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}
