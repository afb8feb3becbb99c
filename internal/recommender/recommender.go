// Package recommender ranks phones for a user priority and explains the
// picks, using Gemini for the wording when it is available.
package recommender

import (
	"context"
	"fmt"
	"strings"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
	"mspro-labs/phone-advisor/internal/models"
)

// Recommender writes recommendation reasons and comparisons.
type Recommender struct {
	gen ai.Generator
	log logger.Logger
}

// New returns a recommender. gen may be nil, in which case all text is rule based.
func New(gen ai.Generator, log logger.Logger) *Recommender {
	if log == nil {
		log = logger.NewNop()
	}
	return &Recommender{gen: gen, log: log}
}

// AIEnabled reports whether Gemini is configured.
func (r *Recommender) AIEnabled() bool {
	return r.gen != nil
}

const reasonPrompt = `Provide a one-line recommendation reason for why this phone is perfect for someone prioritizing %s:

Phone: %s
Price: %s
RAM: %dGB
Camera: %dMP
Battery: %dmAh
Display: %.1f"
Processor: %s
Rating: %.1f/5

Give concise, compelling reason (max 2 lines, with emoji).`

// Reason explains in a line or two why p suits priority.
func (r *Recommender) Reason(ctx context.Context, p models.Phone, priority string) string {
	priority = NormalizePriority(priority)
	if r.gen == nil {
		return fmt.Sprintf("Perfect fit for %s priority!", priority)
	}
	text, err := r.gen.Generate(ctx, ai.Request{Prompt: fmt.Sprintf(reasonPrompt,
		priority, p.FullName, models.FormatINR(p.Price), p.RAM, p.CameraMP, p.BatteryMAh,
		p.DisplayInches, p.Processor, p.Rating,
	)})
	if err != nil {
		r.log.Error("Error getting AI recommendation", logger.String("phone", p.FullName), logger.Error(err))
		metrics.Fallbacks.WithLabelValues("recommender").Inc()
		return fmt.Sprintf("Excellent option for %s!", priority)
	}
	return text
}

// Comparison is one line of a head-to-head comparison.
type Comparison struct {
	Aspect  string `json:"aspect"`
	Verdict string `json:"verdict"`
}

const comparePrompt = `Compare these two phones concisely and objectively:

Phone 1: %s
Phone 2: %s

Provide comparison in this exact format:
Price: [comparison]
Performance: [comparison]
Camera: [comparison]
Battery: [comparison]
Overall Winner: [who wins and why in one line]`

func phoneBlock(p models.Phone) string {
	return fmt.Sprintf(`%s
- Price: %s
- RAM: %dGB | Storage: %dGB
- Camera: %dMP | Battery: %dmAh
- Display: %.1f" | Processor: %s
- Rating: %.1f/5`,
		p.FullName, models.FormatINR(p.Price), p.RAM, p.Storage,
		p.CameraMP, p.BatteryMAh, p.DisplayInches, p.Processor, p.Rating)
}

// Compare contrasts two phones aspect by aspect. Gemini's answer is used when
// it parses into at least one "Aspect: verdict" line; otherwise the rule-based
// comparison is returned.
func (r *Recommender) Compare(ctx context.Context, a, b models.Phone) []Comparison {
	if r.gen == nil {
		return CompareRules(a, b)
	}
	text, err := r.gen.Generate(ctx, ai.Request{Prompt: fmt.Sprintf(comparePrompt, phoneBlock(a), phoneBlock(b))})
	if err != nil {
		r.log.Error("AI comparison error", logger.Error(err))
		metrics.Fallbacks.WithLabelValues("recommender").Inc()
		return CompareRules(a, b)
	}
	if parsed := ParseComparison(text); len(parsed) > 0 {
		return parsed
	}
	metrics.Fallbacks.WithLabelValues("recommender").Inc()
	return CompareRules(a, b)
}

// ParseComparison reads "Key: value" lines. Keys are lowercased with list and
// emphasis markers removed; later duplicates replace earlier ones in place.
func ParseComparison(text string) []Comparison {
	var out []Comparison
	index := make(map[string]int)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.Trim(key, " \t*-#_"))
		value = strings.TrimSpace(strings.Trim(value, "*"))
		if key == "" || value == "" {
			continue
		}
		if i, seen := index[key]; seen {
			out[i].Verdict = value
			continue
		}
		index[key] = len(out)
		out = append(out, Comparison{Aspect: key, Verdict: value})
	}
	return out
}

// CompareRules compares price, RAM, camera, battery and rating numerically.
func CompareRules(a, b models.Phone) []Comparison {
	var out []Comparison

	switch {
	case a.Price < b.Price:
		out = append(out, Comparison{"price", fmt.Sprintf("%s is cheaper by %s", a.FullName, models.FormatINR(b.Price-a.Price))})
	case a.Price > b.Price:
		out = append(out, Comparison{"price", fmt.Sprintf("%s is cheaper by %s", b.FullName, models.FormatINR(a.Price-b.Price))})
	default:
		out = append(out, Comparison{"price", "Both phones have the same price"})
	}

	switch {
	case a.RAM > b.RAM:
		out = append(out, Comparison{"ram", fmt.Sprintf("%s has %dGB more RAM", a.FullName, a.RAM-b.RAM)})
	case a.RAM < b.RAM:
		out = append(out, Comparison{"ram", fmt.Sprintf("%s has %dGB more RAM", b.FullName, b.RAM-a.RAM)})
	default:
		out = append(out, Comparison{"ram", "Both have the same RAM"})
	}

	switch {
	case a.CameraMP > b.CameraMP:
		out = append(out, Comparison{"camera", fmt.Sprintf("%s has %dMP better camera", a.FullName, a.CameraMP-b.CameraMP)})
	case a.CameraMP < b.CameraMP:
		out = append(out, Comparison{"camera", fmt.Sprintf("%s has %dMP better camera", b.FullName, b.CameraMP-a.CameraMP)})
	default:
		out = append(out, Comparison{"camera", "Both have similar camera specs"})
	}

	switch {
	case a.BatteryMAh > b.BatteryMAh:
		out = append(out, Comparison{"battery", fmt.Sprintf("%s has %dmAh more battery", a.FullName, a.BatteryMAh-b.BatteryMAh)})
	case a.BatteryMAh < b.BatteryMAh:
		out = append(out, Comparison{"battery", fmt.Sprintf("%s has %dmAh more battery", b.FullName, b.BatteryMAh-a.BatteryMAh)})
	default:
		out = append(out, Comparison{"battery", "Both have the same battery capacity"})
	}

	switch {
	case a.Rating > b.Rating:
		out = append(out, Comparison{"rating", fmt.Sprintf("%s has better ratings", a.FullName)})
	case a.Rating < b.Rating:
		out = append(out, Comparison{"rating", fmt.Sprintf("%s has better ratings", b.FullName)})
	default:
		out = append(out, Comparison{"rating", "Both have similar ratings"})
	}

	return out
}
