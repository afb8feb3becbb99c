// Package web serves the browser UI, the JSON API and the websocket chat.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/recommender"
)

//go:embed templates
var assets embed.FS

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server needs. Generator, Embedder and
// Scraper may be nil; the matching features then degrade or are disabled.
// AIErr is why Generator is nil, shown to the user.
type Deps struct {
	DB          *sqlx.DB
	Catalog     *catalog.Catalog
	Recommender *recommender.Recommender
	Generator   ai.Generator
	Embedder    ai.Embedder
	AIErr       error
	Scraper     catalog.PhoneScraper
	Refresh     catalog.RefreshOptions
	Log         logger.Logger
	Debug       bool
}

// Server is the web UI.
type Server struct {
	deps     Deps
	log      logger.Logger
	router   *gin.Engine
	pages    map[string]*pageTemplate
	sessions *sessionStore
}

// NewServer parses the templates and sets up the routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.DB == nil || deps.Catalog == nil || deps.Recommender == nil {
		return nil, errors.New("web: DB, Catalog and Recommender are required")
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}

	pages, err := parsePages(assets)
	if err != nil {
		return nil, err
	}

	if deps.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		deps:  deps,
		log:   deps.Log,
		pages: pages,
		sessions: newSessionStore(func() *advisor.Advisor {
			return advisor.New(deps.Generator, deps.Log)
		}),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(recoveryMiddleware(s.log))
	r.Use(loggerMiddleware(s.log))

	static, _ := fs.Sub(assets, "templates/static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.home)
	r.POST("/recommend", s.recommend)
	r.POST("/scrape", s.scrape)
	r.POST("/clear", s.clear)
	r.GET("/search", s.search)
	r.GET("/find", s.find)
	r.GET("/phone", s.phone)
	r.GET("/compare", s.compare)
	r.GET("/chat", s.chatPage)
	r.POST("/chat", s.chatPost)
	r.POST("/chat/clear", s.chatClear)
	r.GET("/ws/chat", s.chatSocket)

	r.GET("/api/phones", s.apiPhones)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

// aiStatus explains why Gemini is off, or returns "" when it is on.
func (s *Server) aiStatus() string {
	switch err := s.deps.AIErr; {
	case s.deps.Generator != nil:
		return ""
	case err == nil, errors.Is(err, ai.ErrMissingAPIKey):
		return "Gemini API not configured. Add GEMINI_API_KEY to .env to enable AI features."
	default:
		return "Gemini unavailable: " + err.Error()
	}
}

// Handler returns the HTTP handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Chat answers and scrapes can take a while.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Web UI started", logger.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("Shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
		s.log.Info("Context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
