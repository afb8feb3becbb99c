// Package advisor is the conversational agent. It answers questions about the
// current recommendations through Gemini and keeps a short chat history.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/models"
)

// Number of past exchanges sent along with a new question.
const historyWindow = 3

// Generation settings for chat answers.
const (
	chatTemperature = 0.7
	chatTopP        = 0.9
	chatMaxTokens   = 1024
)

// Advisor holds one conversation. It is safe for concurrent use.
type Advisor struct {
	gen ai.Generator
	log logger.Logger

	mu      sync.Mutex
	history []ai.Turn
}

// New returns an advisor. gen may be nil, in which case every answer comes
// from the keyword fallback.
func New(gen ai.Generator, log logger.Logger) *Advisor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Advisor{gen: gen, log: log}
}

// AIEnabled reports whether Gemini is configured.
func (a *Advisor) AIEnabled() bool {
	return a.gen != nil
}

// BuildContext lists the recommendations with specs and use cases.
func BuildContext(recs []models.Phone) string {
	if len(recs) == 0 {
		return "No phone recommendations available yet."
	}
	var b strings.Builder
	b.WriteString("**CURRENT PHONE RECOMMENDATIONS:**\n\n")
	for i, p := range recs {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, p.FullName)
		fmt.Fprintf(&b, "   Price: %s\n", models.FormatINR(p.Price))
		fmt.Fprintf(&b, "   RAM: %dGB | Storage: %dGB\n", p.RAM, p.Storage)
		fmt.Fprintf(&b, "   Camera: %dMP | Battery: %dmAh\n", p.CameraMP, p.BatteryMAh)
		fmt.Fprintf(&b, "   Display: %.1f\" | Processor: %s\n", p.DisplayInches, p.Processor)
		fmt.Fprintf(&b, "   Rating: %.1f/5 | Category: %s\n", p.Rating, p.CategoryOr("Standard"))
		fmt.Fprintf(&b, "   Use Cases: %s\n\n", strings.Join(p.UseCases(), ", "))
	}
	return b.String()
}

// SystemPrompt frames the model as a smartphone advisor over the given context.
func SystemPrompt(phoneContext string) string {
	return `You are an expert smartphone advisor with deep knowledge of phone specifications and real-world usage. Your role is to:

1. **Help users choose the right smartphone** based on their needs, budget, and use case
2. **Explain technical specifications** in simple, relatable terms that users can understand
3. **Provide personalized recommendations** for different use cases:
   - Students: Budget-friendly, good for multitasking and online learning
   - Gamers: High RAM, powerful processor, smooth display
   - Photographers: High megapixel camera, good image processing
   - Professionals: Performance, battery life, reliability
   - Budget seekers: Best value for money
4. **Compare phones objectively** highlighting pros and cons
5. **Answer detailed questions** about the recommended phones
6. **Provide real-world usage insights**

Current phone options available:
` + phoneContext + `

IMPORTANT Guidelines:
- Be friendly, conversational, and helpful
- Explain technical terms: RAM = multitasking ability, Processor = speed and power, Camera MP = detail level
- For gaming: Consider RAM (8GB+ for smooth gaming), Processor (Snapdragon 8 Gen 3, A17 Pro are best)
- For photography: Suggest phones with 50MP+ cameras and good image processing
- For battery: Recommend phones with 5000mAh+ and fast charging
- For students: Highlight value for money, productivity features
- Provide honest trade-offs (e.g., "Cheaper but slower processor")
- If asked about budget: Help users understand what features they get at each price point
- For comparisons: Use tables or bullet points for clarity
- Always relate specs to real-world performance
`
}

func (a *Advisor) request(message string, recs []models.Phone) ai.Request {
	a.mu.Lock()
	start := max(0, len(a.history)-historyWindow)
	recent := append([]ai.Turn(nil), a.history[start:]...)
	a.mu.Unlock()

	return ai.Request{
		System:      SystemPrompt(BuildContext(recs)),
		History:     recent,
		Prompt:      fmt.Sprintf("User's Question: %s\n\nProvide a detailed, helpful response with specific phone recommendations where relevant:", message),
		Temperature: chatTemperature,
		TopP:        chatTopP,
		MaxTokens:   chatMaxTokens,
	}
}

func (a *Advisor) remember(message, answer string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, ai.Turn{User: message, Assistant: answer})
}

// Chat answers message in the context of recs. Gemini failures fall back to
// keyword answers, which are not added to the history.
func (a *Advisor) Chat(ctx context.Context, message string, recs []models.Phone) string {
	if a.gen == nil {
		return Fallback(message, recs)
	}
	answer, err := a.gen.Generate(ctx, a.request(message, recs))
	if err != nil {
		a.log.Error("Error generating response", logger.Error(err))
		metrics.Fallbacks.WithLabelValues("advisor").Inc()
		return Fallback(message, recs)
	}
	a.remember(message, answer)
	a.log.Debug("Generated response", logger.String("question", truncate(message, 50)))
	return answer
}

// Stream is Chat delivering the answer in chunks. It returns the full answer.
// When the generator cannot stream, the whole answer is sent as one chunk.
// The error is only non-nil when onChunk fails.
func (a *Advisor) Stream(ctx context.Context, message string, recs []models.Phone, onChunk func(string) error) (string, error) {
	streamer, ok := a.gen.(ai.Streamer)
	if !ok {
		answer := a.Chat(ctx, message, recs)
		return answer, onChunk(answer)
	}

	var b strings.Builder
	var sinkErr error
	err := streamer.Stream(ctx, a.request(message, recs), func(chunk string) error {
		b.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if sinkErr != nil {
		return b.String(), sinkErr
	}
	if err != nil {
		a.log.Error("Error streaming response", logger.Error(err))
		metrics.Fallbacks.WithLabelValues("advisor").Inc()
		if b.Len() > 0 {
			// Part of the answer already went out; finish with a notice.
			notice := "\n\n_(The response was interrupted. Please try again.)_"
			return b.String() + notice, onChunk(notice)
		}
		answer := Fallback(message, recs)
		return answer, onChunk(answer)
	}
	answer := b.String()
	a.remember(message, answer)
	return answer, nil
}

// History returns a copy of the conversation so far.
func (a *Advisor) History() []ai.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ai.Turn(nil), a.history...)
}

// ClearHistory forgets the conversation.
func (a *Advisor) ClearHistory() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
	a.log.Info("Conversation history cleared")
}

const detailsPrompt = `Provide a detailed, engaging review of this phone:

Phone: %s
Price: %s
Specs:
- RAM: %dGB
- Storage: %dGB
- Camera: %dMP
- Battery: %dmAh
- Display: %.1f"
- Processor: %s
- Rating: %.1f/5
- Category: %s

Please provide:
1. Quick summary (1-2 lines)
2. Best for (use cases)
3. Standout features (2-3 bullet points)
4. Potential drawbacks (if any)
5. Overall value assessment

Keep it concise but informative.`

// PhoneDetails returns an AI review of p, or a formatted spec sheet.
func (a *Advisor) PhoneDetails(ctx context.Context, p models.Phone) string {
	if a.gen == nil {
		return FormatDetails(p)
	}
	text, err := a.gen.Generate(ctx, ai.Request{Prompt: fmt.Sprintf(detailsPrompt,
		p.FullName, models.FormatINR(p.Price), p.RAM, p.Storage, p.CameraMP, p.BatteryMAh,
		p.DisplayInches, p.Processor, p.Rating, p.CategoryOr(models.CategoryFlagship),
	)})
	if err != nil {
		a.log.Error("Error getting phone details", logger.String("phone", p.FullName), logger.Error(err))
		metrics.Fallbacks.WithLabelValues("advisor").Inc()
		return FormatDetails(p)
	}
	return text
}

// FormatDetails renders the spec sheet as markdown.
func FormatDetails(p models.Phone) string {
	return fmt.Sprintf(`**%s**

**Price:** %s
**Rating:** %.1f/5
**Category:** %s

**Specifications:**
- RAM: %dGB
- Storage: %dGB
- Camera: %dMP
- Battery: %dmAh
- Display: %.1f"
- Processor: %s

**Best For:** %s`,
		p.FullName, models.FormatINR(p.Price), p.Rating, p.CategoryOr(models.CategoryFlagship),
		p.RAM, p.Storage, p.CameraMP, p.BatteryMAh, p.DisplayInches, p.Processor,
		strings.Join(p.UseCases(), ", "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
