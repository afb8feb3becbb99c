package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
)

// Turn is one user/assistant exchange of a conversation.
type Turn struct {
	User      string
	Assistant string
}

// Request describes a single text generation call. Zero values for the
// sampling fields leave the model defaults in place.
type Request struct {
	System      string
	History     []Turn
	Prompt      string
	Temperature float32
	TopP        float32
	MaxTokens   int32
	JSON        bool // ask for an application/json response
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Streamer delivers generated text chunk by chunk.
type Streamer interface {
	Generator
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
}

// Embedder turns text into a vector, returned both as a BLOB and as floats.
type Embedder interface {
	EmbedString(ctx context.Context, text string) ([]byte, []float32, error)
}

// Config configures a Client.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	Logger         logger.Logger
}

// Client wraps the GenAI client.
type Client struct {
	genaiClient *genai.Client
	modelName   string
	embedModel  *genai.EmbeddingModel
	maxRetries  int
	interval    time.Duration
	log         logger.Logger
}

// NewClient validates the API key and creates a connected AI client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := ValidateAPIKey(cfg.APIKey); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	return &Client{
		genaiClient: c,
		modelName:   cfg.Model,
		embedModel:  c.EmbeddingModel(cfg.EmbeddingModel),
		maxRetries:  cfg.MaxRetries,
		interval:    500 * time.Millisecond,
		log:         cfg.Logger,
	}, nil
}

// Close terminates the connection.
func (c *Client) Close() {
	if c.genaiClient != nil {
		c.genaiClient.Close()
	}
}

// ModelName reports the generative model in use.
func (c *Client) ModelName() string {
	return c.modelName
}

func (c *Client) model(req Request) *genai.GenerativeModel {
	m := c.genaiClient.GenerativeModel(c.modelName)
	if req.Temperature > 0 {
		m.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		m.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
	return m
}

func historyContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)*2)
	for _, t := range turns {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.User)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(t.Assistant)}},
		)
	}
	return contents
}

// Generate returns the full response text for req, retrying transient failures.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	var text string
	err := c.retry(ctx, "generate", func() error {
		m := c.model(req)
		var resp *genai.GenerateContentResponse
		var err error
		if len(req.History) > 0 {
			cs := m.StartChat()
			cs.History = historyContents(req.History)
			resp, err = cs.SendMessage(ctx, genai.Text(req.Prompt))
		} else {
			resp, err = m.GenerateContent(ctx, genai.Text(req.Prompt))
		}
		if err != nil {
			return err
		}
		text = responseText(resp)
		if strings.TrimSpace(text) == "" {
			return errors.New("AI returned an empty response")
		}
		return nil
	})
	metrics.GeminiRequests.WithLabelValues("generate", metrics.Status(err)).Inc()
	metrics.GeminiDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Stream sends response chunks to onChunk as they arrive. Only the initial
// request is retried; once a chunk has been delivered failures are final.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	delivered := false
	err := c.retry(ctx, "stream", func() error {
		m := c.model(req)
		var iter *genai.GenerateContentResponseIterator
		if len(req.History) > 0 {
			cs := m.StartChat()
			cs.History = historyContents(req.History)
			iter = cs.SendMessageStream(ctx, genai.Text(req.Prompt))
		} else {
			iter = m.GenerateContentStream(ctx, genai.Text(req.Prompt))
		}
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				if delivered {
					return backoff.Permanent(err)
				}
				return err
			}
			if chunk := responseText(resp); chunk != "" {
				delivered = true
				if err := onChunk(chunk); err != nil {
					return backoff.Permanent(err)
				}
			}
		}
	})
	metrics.GeminiRequests.WithLabelValues("stream", metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("gemini stream: %w", err)
	}
	return nil
}

// EmbedString generates a vector for the given text and returns it as a byte slice (for DB storage).
// It also returns the raw []float32 if needed immediately.
func (c *Client) EmbedString(ctx context.Context, text string) ([]byte, []float32, error) {
	var values []float32
	err := c.retry(ctx, "embed", func() error {
		res, err := c.embedModel.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}
		if res.Embedding == nil || len(res.Embedding.Values) == 0 {
			return backoff.Permanent(errors.New("AI returned empty embedding"))
		}
		values = res.Embedding.Values
		return nil
	})
	metrics.GeminiRequests.WithLabelValues("embed", metrics.Status(err)).Inc()
	if err != nil {
		return nil, nil, fmt.Errorf("gemini embed: %w", err)
	}

	blob, err := FloatsToBytes(values)
	if err != nil {
		return nil, nil, err
	}
	return blob, values, nil
}

// retry runs op with exponential backoff, up to maxRetries extra attempts.
// Blocked responses and cancelled contexts are not retried.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.interval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn("Gemini call failed, retrying",
			logger.String("operation", op),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}
	return backoff.RetryNotify(attempt, policy, notify)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
