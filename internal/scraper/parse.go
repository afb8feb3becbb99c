package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mspro-labs/phone-advisor/internal/config"
)

// NotAvailable marks a field none of the selectors matched.
const NotAvailable = "N/A"

// RawProduct is a product page before structuring.
type RawProduct struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Rating      string   `json:"rating"`
	Features    []string `json:"features"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url"`
}

// ParseSearchLinks collects unique absolute product links from a search page.
// Links must contain the link pattern and belong to the configured host.
func ParseSearchLinks(html, pageURL string, cfg *config.SiteConfig, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(cfg.Selectors.ProductLink).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(links) >= max {
			return false
		}
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		link := base.ResolveReference(ref).String()
		if cfg.LinkPattern != "" && !strings.Contains(link, cfg.LinkPattern) {
			return true
		}
		if cfg.Host != "" && !strings.Contains(link, cfg.Host) {
			return true
		}
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
		return true
	})
	return links, nil
}

// ParseProduct reads a product detail page.
func ParseProduct(html, pageURL string, sel config.Selectors) (RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return RawProduct{}, err
	}

	p := RawProduct{
		Name:   firstText(doc, sel.Name),
		Price:  firstText(doc, sel.Price),
		Rating: firstText(doc, sel.Rating),
		URL:    pageURL,
	}
	if sel.Features != "" {
		doc.Find(sel.Features).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				p.Features = append(p.Features, t)
			}
		})
	}
	if d := firstText(doc, sel.Description); d != NotAvailable {
		p.Description = d
	}
	return p, nil
}

// firstText returns the text of the first selector with non-empty content.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		if t := strings.TrimSpace(doc.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return NotAvailable
}

var (
	reDigits  = regexp.MustCompile(`\d+`)
	reDecimal = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// parsePrice returns the first integer after dropping the rupee sign and
// thousands separators, or 0.
func parsePrice(s string) int {
	s = strings.NewReplacer("₹", "", ",", "").Replace(s)
	m := reDigits.FindString(s)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

// parseRating returns the first decimal number in s, or 0.
func parseRating(s string) float64 {
	m := reDecimal.FindString(s)
	if m == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(m, 64)
	return f
}
