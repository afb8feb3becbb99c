package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
)

const (
	sessionCookie = "phone_advisor_session"
	sessionTTL    = 24 * time.Hour
)

// recView is a recommendation as shown on the home page.
type recView struct {
	recommender.Recommendation
	Reason string
}

// session is one browser's state: its last recommendations and its chat.
type session struct {
	advisor  *advisor.Advisor
	lastSeen time.Time // guarded by sessionStore.mu

	mu         sync.Mutex
	priority   string
	criteria   catalog.Criteria
	recs       []recView
	flash      string
	transcript []ai.Turn
}

func (s *session) setRecs(priority string, c catalog.Criteria, recs []recView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority, s.criteria, s.recs = priority, c, recs
}

// phones returns the recommended phones in rank order.
func (s *session) phones() []models.Phone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Phone, len(s.recs))
	for i, r := range s.recs {
		out[i] = r.Phone
	}
	return out
}

func (s *session) snapshot() (string, catalog.Criteria, []recView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority, s.criteria, append([]recView(nil), s.recs...)
}

func (s *session) setFlash(msg string) {
	s.mu.Lock()
	s.flash = msg
	s.mu.Unlock()
}

// popFlash returns the pending message once.
func (s *session) popFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

// addTurn appends to the transcript shown on the chat page. Unlike the
// advisor's history it also holds fallback and quick-question answers.
func (s *session) addTurn(user, assistant string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, ai.Turn{User: user, Assistant: assistant})
	s.mu.Unlock()
}

func (s *session) turns() []ai.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ai.Turn(nil), s.transcript...)
}

func (s *session) clearChat() {
	s.mu.Lock()
	s.transcript = nil
	s.mu.Unlock()
	s.advisor.ClearHistory()
}

func (s *session) reset() {
	s.mu.Lock()
	s.priority, s.criteria, s.recs = "", catalog.Criteria{}, nil
	s.mu.Unlock()
	s.clearChat()
}

// sessionStore keeps sessions in memory, keyed by a uuid cookie.
type sessionStore struct {
	newAdvisor func() *advisor.Advisor
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore(newAdvisor func() *advisor.Advisor) *sessionStore {
	return &sessionStore{
		newAdvisor: newAdvisor,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

// get returns the caller's session, starting a new one (and setting the
// cookie) when the cookie is missing or unknown.
func (st *sessionStore) get(c *gin.Context) *session {
	now := st.now()
	id, err := c.Cookie(sessionCookie)

	st.mu.Lock()
	defer st.mu.Unlock()

	if err == nil {
		if s, ok := st.sessions[id]; ok {
			s.lastSeen = now
			return s
		}
	}

	st.evictLocked(now)
	id = uuid.NewString()
	s := &session{advisor: st.newAdvisor(), lastSeen: now}
	st.sessions[id] = s
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(sessionTTL.Seconds()), "/", "", false, true)
	return s
}

func (st *sessionStore) evictLocked(now time.Time) {
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > sessionTTL {
			delete(st.sessions, id)
		}
	}
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
