package advisor

import (
	"fmt"
	"strings"
	"unicode"

	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
)

var (
	gamingWords  = []string{"gaming", "game", "pubg", "cod", "performance"}
	cameraWords  = []string{"camera", "photo", "picture", "photography"}
	batteryWords = []string{"battery", "backup", "charging", "last"}
	studentWords = []string{"student", "study", "learning", "budget"}
	compareWords = []string{"compare", "difference"}
	bestWords    = []string{"best", "top", "recommend", "which"}
)

func mentions(message string, words []string) bool {
	for _, w := range words {
		if strings.Contains(message, w) {
			return true
		}
	}
	return false
}

// mentionsWord matches w as a whole word, for short tokens like "vs".
func mentionsWord(message, w string) bool {
	fields := strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if f == w {
			return true
		}
	}
	return false
}

// best returns the first phone for which no later phone is strictly better.
func best(recs []models.Phone, better func(a, b models.Phone) bool) models.Phone {
	top := recs[0]
	for _, p := range recs[1:] {
		if better(p, top) {
			top = p
		}
	}
	return top
}

// Fallback answers from keywords when Gemini is unavailable.
func Fallback(message string, recs []models.Phone) string {
	msg := strings.ToLower(message)
	if len(recs) == 0 {
		return "Please set your preferences and get recommendations first, then I can help you choose the best phone for your needs!"
	}

	switch {
	case mentions(msg, gamingWords):
		p := best(recs, func(a, b models.Phone) bool { return a.RAM > b.RAM })
		return fmt.Sprintf("For gaming, I'd recommend the **%s** with %dGB RAM and %s processor. It offers excellent performance for smooth gaming experience at %s.",
			p.FullName, p.RAM, p.Processor, models.FormatINR(p.Price))

	case mentions(msg, cameraWords):
		p := best(recs, func(a, b models.Phone) bool { return a.CameraMP > b.CameraMP })
		return fmt.Sprintf("For photography, the **%s** stands out with its %dMP camera. Priced at %s, it'll capture stunning photos!",
			p.FullName, p.CameraMP, models.FormatINR(p.Price))

	case mentions(msg, batteryWords):
		p := best(recs, func(a, b models.Phone) bool { return a.BatteryMAh > b.BatteryMAh })
		return fmt.Sprintf("For long battery life, go with the **%s** featuring a %dmAh battery. It costs %s and will easily last all day.",
			p.FullName, p.BatteryMAh, models.FormatINR(p.Price))

	case mentions(msg, studentWords):
		p := best(recs, func(a, b models.Phone) bool { return a.Price < b.Price })
		return fmt.Sprintf("For students, the **%s** is perfect! At %s, it offers %dGB RAM and %dGB storage - great value for studying, entertainment, and daily tasks.",
			p.FullName, models.FormatINR(p.Price), p.RAM, p.Storage)

	case (mentions(msg, compareWords) || mentionsWord(msg, "vs")) && len(recs) >= 2:
		return compareFallback(recs[0], recs[1])

	case mentions(msg, bestWords):
		p := recs[0]
		return fmt.Sprintf("Based on your preferences, I'd recommend the **%s**! At %s, it offers %dGB RAM, %dMP camera, and %dmAh battery. It has a %.1f/5 rating and runs on %s.",
			p.FullName, models.FormatINR(p.Price), p.RAM, p.CameraMP, p.BatteryMAh, p.Rating, p.Processor)
	}

	p := recs[0]
	return fmt.Sprintf("I've analyzed the options for you! The **%s** is a great choice at %s. It has %dGB RAM, %dMP camera, and %dmAh battery. Feel free to ask me specific questions about gaming, camera quality, battery life, or comparisons!",
		p.FullName, models.FormatINR(p.Price), p.RAM, p.CameraMP, p.BatteryMAh)
}

func compareFallback(a, b models.Phone) string {
	strength := "value"
	if a.RAM > b.RAM {
		strength = "performance"
	}
	other := "battery life"
	if b.CameraMP > a.CameraMP {
		other = "camera"
	}
	return fmt.Sprintf(`**%s** vs **%s**:

- Price: %s vs %s
- RAM: %dGB vs %dGB
- Camera: %dMP vs %dMP
- Battery: %dmAh vs %dmAh
- Rating: %.1f/5 vs %.1f/5

%s is better for %s, while %s excels in %s.`,
		a.FullName, b.FullName,
		models.FormatINR(a.Price), models.FormatINR(b.Price),
		a.RAM, b.RAM,
		a.CameraMP, b.CameraMP,
		a.BatteryMAh, b.BatteryMAh,
		a.Rating, b.Rating,
		a.FullName, strength, b.FullName, other)
}

// Use cases with canned answers.
const (
	UseCaseGaming       = "gaming"
	UseCasePhotography  = "photography"
	UseCaseBattery      = "battery"
	UseCaseStudent      = "student"
	UseCaseProfessional = "professional"
)

// UseCases lists the quick questions offered in the UI.
var UseCases = []string{UseCaseGaming, UseCasePhotography, UseCaseBattery, UseCaseStudent, UseCaseProfessional}

// UseCase picks the best recommendation for a named use case.
func UseCase(useCase string, recs []models.Phone) string {
	if len(recs) == 0 {
		return "No recommendations available. Please set your preferences first."
	}

	switch strings.ToLower(strings.TrimSpace(useCase)) {
	case UseCaseGaming:
		p := best(recs, func(a, b models.Phone) bool {
			if a.RAM != b.RAM {
				return a.RAM > b.RAM
			}
			return recommender.ProcessorScore(a.Processor) > recommender.ProcessorScore(b.Processor)
		})
		return fmt.Sprintf("**For Gaming**: %s with %dGB RAM and %s is perfect for intense gaming sessions!", p.FullName, p.RAM, p.Processor)
	case UseCasePhotography:
		p := best(recs, func(a, b models.Phone) bool { return a.CameraMP > b.CameraMP })
		return fmt.Sprintf("**For Photography**: %s with %dMP camera will capture stunning photos!", p.FullName, p.CameraMP)
	case UseCaseBattery:
		p := best(recs, func(a, b models.Phone) bool { return a.BatteryMAh > b.BatteryMAh })
		return fmt.Sprintf("**For Battery Life**: %s with %dmAh battery will keep you powered all day!", p.FullName, p.BatteryMAh)
	case UseCaseStudent:
		p := best(recs, func(a, b models.Phone) bool { return a.Price < b.Price })
		return fmt.Sprintf("**For Students**: %s at %s offers the best value with %dGB RAM!", p.FullName, models.FormatINR(p.Price), p.RAM)
	case UseCaseProfessional:
		p := best(recs, func(a, b models.Phone) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.RAM > b.RAM
		})
		return fmt.Sprintf("**For Professionals**: %s with %.1f/5 rating and %dGB RAM is reliable and powerful!", p.FullName, p.Rating, p.RAM)
	default:
		return fmt.Sprintf("Top recommendation: %s at %s", recs[0].FullName, models.FormatINR(recs[0].Price))
	}
}
