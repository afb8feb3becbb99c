package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
	"mspro-labs/phone-advisor/internal/searcher"
)

const (
	defaultScrapeQuery = "smartphone"
	defaultScrapeMax   = 15
	maxScrapeMax       = 30
	defaultTopN        = 5
	maxTopN            = 10
)

// Questions behind the quick-question buttons.
var quickQuestions = map[string]string{
	advisor.UseCaseGaming:       "Which is best for gaming?",
	advisor.UseCasePhotography:  "Which has the best camera?",
	advisor.UseCaseBattery:      "Which has the best battery?",
	advisor.UseCaseStudent:      "Which is best for students?",
	advisor.UseCaseProfessional: "Which is best for professionals?",
}

type recommendForm struct {
	Query      string   `form:"query"`
	Priority   string   `form:"priority"`
	TopN       int      `form:"top_n"`
	Brands     []string `form:"brands"`
	MaxPrice   int      `form:"max_price"`
	MinRAM     int      `form:"min_ram"`
	MinCamera  int      `form:"min_camera"`
	MinBattery int      `form:"min_battery"`
	MinStorage int      `form:"min_storage"`
	MinDisplay float64  `form:"min_display"`
}

func (f recommendForm) criteria() catalog.Criteria {
	return catalog.Criteria{
		Brands:     f.Brands,
		MaxPrice:   f.MaxPrice,
		MinRAM:     f.MinRAM,
		MinCamera:  f.MinCamera,
		MinBattery: f.MinBattery,
		MinStorage: f.MinStorage,
		MinDisplay: f.MinDisplay,
	}
}

func (s *Server) home(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.get(c)

	phones, err := s.deps.Catalog.Phones(ctx)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, "Failed to load phones")
		return
	}
	lo, hi := catalog.PriceRange(phones)
	priority, criteria, recs := sess.snapshot()
	if priority == "" {
		priority = recommender.ValueForMoney
	}

	s.render(c, http.StatusOK, "home", gin.H{
		"Title":         "Find My Phone",
		"Flash":         sess.popFlash(),
		"PhoneCount":    len(phones),
		"Brands":        catalog.Brands(phones),
		"PriceMin":      lo,
		"PriceMax":      hi,
		"Priorities":    recommender.Priorities,
		"Priority":      priority,
		"Explanation":   recommender.Explain(priority),
		"Criteria":      criteria,
		"Recs":          recs,
		"ScrapeEnabled": s.deps.Scraper != nil,
		"ScrapeQuery":   defaultScrapeQuery,
		"ScrapeMax":     defaultScrapeMax,
	})
}

// recommend optionally scrapes the query, filters the catalog and ranks it.
// When nothing meets the filters every phone is ranked instead.
func (s *Server) recommend(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.get(c)

	var form recommendForm
	if err := c.ShouldBind(&form); err != nil {
		sess.setFlash("Invalid preferences: " + err.Error())
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	priority := recommender.NormalizePriority(form.Priority)
	topN := clamp(form.TopN, defaultTopN, maxTopN)

	if q := strings.TrimSpace(form.Query); q != "" && s.deps.Scraper != nil {
		opts := s.deps.Refresh
		if opts.Max <= 0 {
			opts.Max = defaultScrapeMax
		}
		if _, err := s.deps.Catalog.Refresh(ctx, s.deps.Scraper, q, opts); err != nil {
			_ = c.Error(err)
			sess.setFlash(fmt.Sprintf("Scraping %q failed: %v", q, err))
		}
	}

	phones, err := s.deps.Catalog.Phones(ctx)
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, "Failed to load phones")
		return
	}
	if len(phones) == 0 {
		sess.setFlash("The database is empty. Scrape some phones first.")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	criteria := form.criteria()
	matched := catalog.FilterBySpecs(phones, criteria)
	if len(matched) == 0 {
		sess.setFlash("No phones match your exact specifications. Showing the best of all phones.")
		matched = phones
	}

	ranked := recommender.Recommend(matched, priority, topN)
	views := make([]recView, len(ranked))
	for i, r := range ranked {
		views[i] = recView{Recommendation: r, Reason: s.deps.Recommender.Reason(ctx, r.Phone, priority)}
	}
	sess.setRecs(priority, criteria, views)
	c.Redirect(http.StatusSeeOther, "/")
}

type scrapeForm struct {
	Query string `form:"query"`
	Max   int    `form:"max"`
	Force bool   `form:"force"`
	Fresh bool   `form:"fresh"`
}

func (s *Server) scrape(c *gin.Context) {
	sess := s.sessions.get(c)
	if s.deps.Scraper == nil {
		sess.setFlash("Scraping is disabled on this server.")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var form scrapeForm
	_ = c.ShouldBind(&form)
	query := strings.TrimSpace(form.Query)
	if query == "" {
		query = defaultScrapeQuery
	}
	opts := s.deps.Refresh
	opts.Max = clamp(form.Max, defaultScrapeMax, maxScrapeMax)
	opts.Force = opts.Force || form.Force
	opts.Fresh = form.Fresh

	res, err := s.deps.Catalog.Refresh(c.Request.Context(), s.deps.Scraper, query, opts)
	switch {
	case err != nil:
		_ = c.Error(err)
		sess.setFlash(fmt.Sprintf("Scraping failed: %v", err))
	case res.Cached:
		sess.setFlash(fmt.Sprintf("%q was scraped at %s; using the stored phones.", query, res.At.Format("15:04")))
	case len(res.Phones) == 0:
		sess.setFlash("No phones found. Try different search terms.")
	default:
		sess.setFlash(fmt.Sprintf("Scraped %d phones for %q.", len(res.Phones), query))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) clear(c *gin.Context) {
	s.sessions.get(c).reset()
	c.Redirect(http.StatusSeeOther, "/")
}

type searchForm struct {
	Text       string `form:"q"`
	Brand      string `form:"brand"`
	MinRAM     int    `form:"min_ram"`
	MaxRAM     int    `form:"max_ram"`
	MinCamera  int    `form:"min_camera"`
	MinBattery int    `form:"min_battery"`
}

func (s *Server) search(c *gin.Context) {
	var form searchForm
	_ = c.ShouldBindQuery(&form)

	data := gin.H{"Title": "Search", "Form": form}
	if strings.TrimSpace(form.Text) == "" {
		s.render(c, http.StatusOK, "search", data)
		return
	}

	phones, err := s.deps.Catalog.Phones(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, "Failed to load phones")
		return
	}
	data["Searched"] = true
	data["Results"] = catalog.Search(phones, catalog.Query{
		Text:       form.Text,
		Brand:      form.Brand,
		MinRAM:     form.MinRAM,
		MaxRAM:     form.MaxRAM,
		MinCamera:  form.MinCamera,
		MinBattery: form.MinBattery,
	})
	s.render(c, http.StatusOK, "search", data)
}

// find is the semantic search page.
func (s *Server) find(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	data := gin.H{"Title": "Semantic Search", "Query": query}
	if query == "" {
		s.render(c, http.StatusOK, "find", data)
		return
	}
	if s.deps.Embedder == nil {
		data["Error"] = "Semantic search is unavailable without a Gemini API key."
		s.render(c, http.StatusServiceUnavailable, "find", data)
		return
	}

	results, err := searcher.Perform(c.Request.Context(), s.deps.DB, s.deps.Embedder, query, searcher.Options{})
	if err != nil {
		_ = c.Error(err)
		data["Error"] = "Search failed. Please try again."
		s.render(c, http.StatusBadGateway, "find", data)
		return
	}
	data["Searched"] = true
	data["Results"] = results
	s.render(c, http.StatusOK, "find", data)
}

func (s *Server) phone(c *gin.Context) {
	ctx := c.Request.Context()
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.Redirect(http.StatusFound, "/search")
		return
	}
	p, err := s.deps.Catalog.Phone(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Sprintf("No phone named %q.", name))
		return
	}
	if err != nil {
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, "Failed to load phone")
		return
	}

	sess := s.sessions.get(c)
	s.render(c, http.StatusOK, "phone", gin.H{
		"Title":   p.FullName,
		"Phone":   p,
		"Insight": s.deps.Catalog.Insight(ctx, p),
		"Review":  sess.advisor.PhoneDetails(ctx, p),
	})
}

// compare contrasts two phones. The pickers offer the session's
// recommendations, or the whole catalog when there are none.
func (s *Server) compare(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.get(c)

	options := sess.phones()
	if len(options) < 2 {
		all, err := s.deps.Catalog.Phones(ctx)
		if err != nil {
			_ = c.Error(err)
			s.renderError(c, http.StatusInternalServerError, "Failed to load phones")
			return
		}
		options = all
	}
	names := make([]string, len(options))
	for i, p := range options {
		names[i] = p.FullName
	}

	a, b := c.Query("a"), c.Query("b")
	data := gin.H{"Title": "Compare", "Names": names, "A": a, "B": b}
	if a == "" || b == "" {
		s.render(c, http.StatusOK, "compare", data)
		return
	}
	if a == b {
		data["Error"] = "Please select two different phones to compare."
		s.render(c, http.StatusOK, "compare", data)
		return
	}

	pa, errA := s.deps.Catalog.Phone(ctx, a)
	pb, errB := s.deps.Catalog.Phone(ctx, b)
	if err := errors.Join(errA, errB); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, "One of the phones is not in the catalog.")
			return
		}
		_ = c.Error(err)
		s.renderError(c, http.StatusInternalServerError, "Failed to load phones")
		return
	}
	data["Left"] = pa
	data["Right"] = pb
	data["Comparisons"] = s.deps.Recommender.Compare(ctx, pa, pb)
	s.render(c, http.StatusOK, "compare", data)
}

func (s *Server) chatPage(c *gin.Context) {
	sess := s.sessions.get(c)
	s.render(c, http.StatusOK, "chat", gin.H{
		"Title":     "Chat Advisor",
		"Recs":      sess.phones(),
		"Turns":     sess.turns(),
		"UseCases":  advisor.UseCases,
		"Questions": quickQuestions,
	})
}

type chatForm struct {
	Message string `form:"message"`
	UseCase string `form:"use_case"`
	Phone   string `form:"phone"`
}

// chatPost answers a typed question, a quick question, or a question about
// a single phone.
func (s *Server) chatPost(c *gin.Context) {
	ctx := c.Request.Context()
	sess := s.sessions.get(c)

	var form chatForm
	_ = c.ShouldBind(&form)

	switch {
	case form.UseCase != "":
		question, ok := quickQuestions[strings.ToLower(form.UseCase)]
		if !ok {
			question = form.UseCase
		}
		sess.addTurn(question, advisor.UseCase(form.UseCase, sess.phones()))

	case form.Phone != "":
		p, err := s.deps.Catalog.Phone(ctx, form.Phone)
		if err != nil {
			s.renderError(c, http.StatusNotFound, fmt.Sprintf("No phone named %q.", form.Phone))
			return
		}
		question := strings.TrimSpace(form.Message)
		if question == "" {
			question = fmt.Sprintf("Tell me more about the %s. Is it worth buying?", p.FullName)
		}
		sess.addTurn(question, sess.advisor.Chat(ctx, question, []models.Phone{p}))

	case strings.TrimSpace(form.Message) != "":
		question := strings.TrimSpace(form.Message)
		sess.addTurn(question, sess.advisor.Chat(ctx, question, sess.phones()))
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) chatClear(c *gin.Context) {
	s.sessions.get(c).clearChat()
	c.Redirect(http.StatusSeeOther, "/chat")
}

type apiQuery struct {
	Brands     []string `form:"brand"`
	MaxPrice   int      `form:"max_price"`
	MinRAM     int      `form:"min_ram"`
	MinCamera  int      `form:"min_camera"`
	MinBattery int      `form:"min_battery"`
	MinStorage int      `form:"min_storage"`
	MinDisplay float64  `form:"min_display"`
	Priority   string   `form:"priority"`
	TopN       int      `form:"top_n"`
}

// apiPhones lists active phones as JSON, filtered by spec thresholds and
// ranked when a priority is given.
func (s *Server) apiPhones(c *gin.Context) {
	var q apiQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	phones, err := s.deps.Catalog.Phones(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load phones"})
		return
	}
	phones = catalog.FilterBySpecs(phones, catalog.Criteria{
		Brands:     q.Brands,
		MaxPrice:   q.MaxPrice,
		MinRAM:     q.MinRAM,
		MinCamera:  q.MinCamera,
		MinBattery: q.MinBattery,
		MinStorage: q.MinStorage,
		MinDisplay: q.MinDisplay,
	})

	if q.Priority == "" {
		c.JSON(http.StatusOK, gin.H{"count": len(phones), "phones": phones})
		return
	}
	priority := recommender.NormalizePriority(q.Priority)
	recs := recommender.Recommend(phones, priority, q.TopN)
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "priority": priority, "recommendations": recs})
}

func (s *Server) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.deps.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	n, err := db.CountActivePhones(ctx, s.deps.DB)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"phones":    n,
		"ai":        s.deps.Generator != nil,
		"ai_status": s.aiStatus(),
		"search":    s.deps.Embedder != nil,
		"scrape":    s.deps.Scraper != nil,
	})
}

// clamp returns def for non-positive n and caps n at hi.
func clamp(n, def, hi int) int {
	if n <= 0 {
		return def
	}
	return min(n, hi)
}
