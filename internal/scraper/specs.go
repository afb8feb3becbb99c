package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/metrics"
)

// Specs are the hardware details pulled out of a product's feature bullets.
type Specs struct {
	RAM           int     `json:"ram"`
	Storage       int     `json:"storage"`
	CameraMP      int     `json:"camera_mp"`
	BatteryMAh    int     `json:"battery_mah"`
	DisplayInches float64 `json:"display_inches"`
	Processor     string  `json:"processor"`
}

// DefaultSpecs are used for anything the features do not mention.
func DefaultSpecs() Specs {
	return Specs{RAM: 4, Storage: 64, CameraMP: 12, BatteryMAh: 4000, DisplayInches: 6.5, Processor: "Unknown"}
}

// fillDefaults replaces zero fields with defaults.
func (s Specs) fillDefaults() Specs {
	d := DefaultSpecs()
	if s.RAM <= 0 {
		s.RAM = d.RAM
	}
	if s.Storage <= 0 {
		s.Storage = d.Storage
	}
	if s.CameraMP <= 0 {
		s.CameraMP = d.CameraMP
	}
	if s.BatteryMAh <= 0 {
		s.BatteryMAh = d.BatteryMAh
	}
	if s.DisplayInches <= 0 {
		s.DisplayInches = d.DisplayInches
	}
	if strings.TrimSpace(s.Processor) == "" {
		s.Processor = d.Processor
	}
	return s
}

// SpecExtractor asks Gemini for structured specs and falls back to regular
// expressions when no generator is configured or the answer is unusable.
type SpecExtractor struct {
	gen ai.Generator
	log logger.Logger
}

func NewSpecExtractor(gen ai.Generator, log logger.Logger) *SpecExtractor {
	return &SpecExtractor{gen: gen, log: log}
}

const specPrompt = `Extract phone specifications from these features:

Phone: %s
Features:
%s

Return ONLY valid JSON (no markdown, no code blocks):
{
  "ram": <number>,
  "storage": <number>,
  "camera_mp": <number>,
  "battery_mah": <number>,
  "display_inches": <number>,
  "processor": "<name>"
}

Use defaults if not found: ram=4, storage=64, camera_mp=12, battery_mah=4000, display_inches=6.5, processor="Unknown".`

func (e *SpecExtractor) Extract(ctx context.Context, name string, features []string) Specs {
	if e.gen == nil || len(features) == 0 {
		return ExtractSpecsRegex(features)
	}

	text, err := e.gen.Generate(ctx, ai.Request{
		Prompt: fmt.Sprintf(specPrompt, name, strings.Join(features, "\n")),
		JSON:   true,
	})
	if err == nil {
		var specs Specs
		if err = json.Unmarshal([]byte(stripCodeFences(text)), &specs); err == nil {
			return specs.fillDefaults()
		}
	}
	e.log.Warn("AI spec extraction failed, using regex", logger.String("phone", name), logger.Error(err))
	metrics.Fallbacks.WithLabelValues("spec_extractor").Inc()
	return ExtractSpecsRegex(features)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

var (
	reRAM     = regexp.MustCompile(`(?i)(\d+)\s*GB\s*RAM`)
	reStorage = regexp.MustCompile(`(?i)(\d+)\s*GB\s*(?:ROM|Storage)`)
	reCamera  = regexp.MustCompile(`(?i)(\d+)\s*MP`)
	reBattery = regexp.MustCompile(`(?i)(\d+)\s*mAh`)
	reDisplay = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:inch|")`)
	reInches  = regexp.MustCompile(`(?i)\((\d+(?:\.\d+)?)\s*inch\)`)
	reChipset = regexp.MustCompile(`(?i)^(.+?)\s+processor\b`)
)

// ExtractSpecsRegex pulls specs from feature text with regular expressions.
func ExtractSpecsRegex(features []string) Specs {
	specs := DefaultSpecs()
	text := strings.Join(features, " ")

	if m := reRAM.FindStringSubmatch(text); m != nil {
		specs.RAM, _ = strconv.Atoi(m[1])
	}
	if m := reStorage.FindStringSubmatch(text); m != nil {
		specs.Storage, _ = strconv.Atoi(m[1])
	}
	if m := reCamera.FindStringSubmatch(text); m != nil {
		specs.CameraMP, _ = strconv.Atoi(m[1])
	}
	if m := reBattery.FindStringSubmatch(text); m != nil {
		specs.BatteryMAh, _ = strconv.Atoi(m[1])
	}
	// Listings usually read "17.02 cm (6.7 inch)"; prefer the bracketed inches.
	if m := reInches.FindStringSubmatch(text); m != nil {
		specs.DisplayInches, _ = strconv.ParseFloat(m[1], 64)
	} else if m := reDisplay.FindStringSubmatch(text); m != nil {
		specs.DisplayInches, _ = strconv.ParseFloat(m[1], 64)
	}
	for _, f := range features {
		if m := reChipset.FindStringSubmatch(strings.TrimSpace(f)); m != nil {
			specs.Processor = m[1]
			break
		}
	}
	return specs.fillDefaults()
}
