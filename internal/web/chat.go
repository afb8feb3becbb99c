package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/logger"
)

const (
	wsWriteWait    = 10 * time.Second
	wsReadLimit    = 8192
	wsPongWait     = 5 * time.Minute
	maxQuestionLen = 2000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from pages served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsIncoming struct {
	Message string `json:"message"`
	UseCase string `json:"use_case"`
}

// wsOutgoing is one frame sent to the browser. A reply is a run of "chunk"
// frames closed by a "done" frame carrying the full text and its HTML.
type wsOutgoing struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// chatSocket streams advisor answers over a websocket. Messages may be JSON
// objects or plain text.
func (s *Server) chatSocket(c *gin.Context) {
	sess := s.sessions.get(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", logger.String("origin", c.GetHeader("Origin")), logger.Error(err))
		return
	}
	defer ws.Close()

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))

	send := func(msg wsOutgoing) error {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return ws.WriteJSON(msg)
	}

	ctx := c.Request.Context()
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Chat socket closed unexpectedly", logger.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))

		var in wsIncoming
		if err := json.Unmarshal(payload, &in); err != nil {
			in = wsIncoming{Message: string(payload)}
		}

		if useCase := strings.TrimSpace(in.UseCase); useCase != "" {
			question, ok := quickQuestions[strings.ToLower(useCase)]
			if !ok {
				question = useCase
			}
			answer := advisor.UseCase(useCase, sess.phones())
			sess.addTurn(question, answer)
			if err := send(wsOutgoing{Type: "done", Text: answer, HTML: string(renderMarkdown(answer))}); err != nil {
				return
			}
			continue
		}

		message := strings.TrimSpace(in.Message)
		if message == "" {
			continue
		}
		if len(message) > maxQuestionLen {
			if err := send(wsOutgoing{Type: "error", Text: "Message is too long."}); err != nil {
				return
			}
			continue
		}

		answer, err := sess.advisor.Stream(ctx, message, sess.phones(), func(chunk string) error {
			return send(wsOutgoing{Type: "chunk", Text: chunk})
		})
		if err != nil {
			s.log.Debug("Chat socket write failed", logger.Error(err))
			return
		}
		sess.addTurn(message, answer)
		if err := send(wsOutgoing{Type: "done", Text: answer, HTML: string(renderMarkdown(answer))}); err != nil {
			return
		}
	}
}
