package scraper

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/gocolly/colly/v2"

	"mspro-labs/phone-advisor/internal/config"
	"mspro-labs/phone-advisor/internal/logger"
)

// Fetcher returns the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// NewFetcher picks the fetcher named in the site config.
func NewFetcher(cfg *config.SiteConfig, log logger.Logger) (Fetcher, error) {
	switch cfg.Fetcher {
	case config.FetcherHTTP:
		return NewHTTPFetcher(cfg), nil
	case config.FetcherBrowser, "":
		return NewBrowserFetcher(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}

// BrowserFetcher drives a stealth headless Chrome. The browser is launched
// lazily on the first fetch and reused for every page after that. A failed
// launch is retried on the next fetch.
type BrowserFetcher struct {
	cfg *config.SiteConfig
	log logger.Logger

	start func() (*rod.Browser, error)

	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowserFetcher(cfg *config.SiteConfig, log logger.Logger) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg, log: log, start: startBrowser}
}

// startBrowser launches Chrome and connects to it. Chrome is killed again
// when the connection fails.
func startBrowser() (*rod.Browser, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return b, nil
}

func (f *BrowserFetcher) launch() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}
	f.log.Info("Launching headless browser")
	b, err := f.start()
	if err != nil {
		f.log.Warn("Browser launch failed; will retry on the next fetch", logger.Error(err))
		return nil, err
	}
	f.browser = b
	return b, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := f.launch()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	var html string
	err = rod.Try(func() {
		p := page.Context(ctx).Timeout(f.cfg.PageTimeout)
		p.MustNavigate(url)
		p.MustWaitStable()

		// The login popup is optional; a missing one is not an error.
		if sel := f.cfg.Selectors.PopupButton; sel != "" {
			_ = rod.Try(func() {
				if text := f.cfg.Selectors.PopupText; text != "" {
					p.Timeout(5*time.Second).MustElementR(sel, regexp.QuoteMeta(text)).MustClick()
				} else {
					p.Timeout(5 * time.Second).MustElement(sel).MustClick()
				}
				f.log.Debug("Closed popup", logger.String("url", url))
			})
		}

		html = p.MustHTML()
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return html, nil
}

func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}

// HTTPFetcher downloads pages without rendering JavaScript.
type HTTPFetcher struct {
	cfg *config.SiteConfig
}

func NewHTTPFetcher(cfg *config.SiteConfig) *HTTPFetcher {
	return &HTTPFetcher{cfg: cfg}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(f.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	if f.cfg.PageTimeout > 0 {
		c.SetRequestTimeout(f.cfg.PageTimeout)
	}

	var body string
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	c.Wait()
	if fetchErr != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
	}
	return body, nil
}

func (f *HTTPFetcher) Close() error { return nil }
