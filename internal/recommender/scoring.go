package recommender

import (
	"sort"
	"strings"

	"mspro-labs/phone-advisor/internal/models"
)

// Priorities a user can rank phones by.
const (
	Performance   = "Performance"
	Camera        = "Camera"
	Battery       = "Battery"
	Display       = "Display"
	ValueForMoney = "Value for Money"
)

// Priorities lists every priority in display order.
var Priorities = []string{Performance, Camera, Battery, Display, ValueForMoney}

type metric int

const (
	metricRAM metric = iota
	metricProcessor
	metricStorage
	metricPrice
	metricCamera
	metricRating
	metricBattery
	metricDisplay
)

type weight struct {
	metric metric
	value  float64
}

var priorityWeights = map[string][]weight{
	Performance: {
		{metricRAM, 0.35},
		{metricProcessor, 0.35},
		{metricStorage, 0.15},
		{metricPrice, 0.15},
	},
	Camera: {
		{metricCamera, 0.50},
		{metricPrice, 0.20},
		{metricRating, 0.30},
	},
	Battery: {
		{metricBattery, 0.60},
		{metricPrice, 0.20},
		{metricRating, 0.20},
	},
	Display: {
		{metricDisplay, 0.50},
		{metricRating, 0.30},
		{metricPrice, 0.20},
	},
	ValueForMoney: {
		{metricPrice, 0.40},
		{metricRating, 0.30},
		{metricRAM, 0.15},
		{metricBattery, 0.15},
	},
}

// processorScores rates chipsets out of 100.
var processorScores = map[string]float64{
	"Snapdragon 8 Gen 3":  100,
	"A17 Pro":             100,
	"Snapdragon 8+ Gen 1": 95,
	"Dimensity 8300":      90,
	"A16 Bionic":          95,
	"Exynos 2400":         90,
	"Dimensity 8200":      88,
	"Snapdragon 782G":     85,
	"A15 Bionic":          90,
	"Dimensity 7200":      80,
	"Snapdragon 7s Gen 2": 78,
	"Snapdragon 7 Gen 3":  80,
	"Exynos 1380":         75,
	"Dimensity 7050":      72,
	"Snapdragon 695":      70,
	"Snapdragon 685":      68,
	"Snapdragon 6 Gen 1":  65,
	"Snapdragon 6s Gen 3": 65,
	"Dimensity 6020":      60,
	"Exynos 1280":         65,
	"Helio G85":           55,
}

const defaultProcessorScore = 50

// NormalizePriority maps unknown priorities to Value for Money.
func NormalizePriority(priority string) string {
	if _, ok := priorityWeights[priority]; ok {
		return priority
	}
	return ValueForMoney
}

// ProcessorScore looks a chipset up by exact name, then by the longest known
// name it contains (ignoring case). Unknown chipsets score 50.
func ProcessorScore(processor string) float64 {
	if s, ok := processorScores[processor]; ok {
		return s
	}
	lower := strings.ToLower(processor)
	best, bestLen := float64(defaultProcessorScore), 0
	for name, s := range processorScores {
		if !strings.Contains(lower, strings.ToLower(name)) {
			continue
		}
		if len(name) > bestLen || (len(name) == bestLen && s > best) {
			best, bestLen = s, len(name)
		}
	}
	return best
}

// maxima holds the largest value of each metric over a candidate set.
type maxima struct {
	price, ram, storage, camera, battery, display float64
}

func maximaOf(phones []models.Phone) maxima {
	var m maxima
	for _, p := range phones {
		m.price = max(m.price, float64(p.Price))
		m.ram = max(m.ram, float64(p.RAM))
		m.storage = max(m.storage, float64(p.Storage))
		m.camera = max(m.camera, float64(p.CameraMP))
		m.battery = max(m.battery, float64(p.BatteryMAh))
		m.display = max(m.display, p.DisplayInches)
	}
	return m
}

func ratio(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return v / maxV
}

func score(p models.Phone, priority string, m maxima) float64 {
	var total float64
	for _, w := range priorityWeights[NormalizePriority(priority)] {
		var n float64
		switch w.metric {
		case metricProcessor:
			n = ProcessorScore(p.Processor) / 100
		case metricPrice:
			// Cheaper is better.
			if m.price > 0 {
				n = 1 - float64(p.Price)/m.price
			}
		case metricRating:
			n = p.Rating / 5
		case metricRAM:
			n = ratio(float64(p.RAM), m.ram)
		case metricStorage:
			n = ratio(float64(p.Storage), m.storage)
		case metricCamera:
			n = ratio(float64(p.CameraMP), m.camera)
		case metricBattery:
			n = ratio(float64(p.BatteryMAh), m.battery)
		case metricDisplay:
			n = ratio(p.DisplayInches, m.display)
		}
		total += n * w.value
	}
	return total * 100
}

// Score rates p for priority on a 0-100 scale relative to the candidate set.
func Score(p models.Phone, priority string, candidates []models.Phone) float64 {
	return score(p, priority, maximaOf(candidates))
}

// Recommendation is a phone with its score for the requested priority.
type Recommendation struct {
	models.Phone
	Score float64 `json:"score"`
}

// Recommend scores every phone and returns the best topN, ordered by score
// and then rating, both descending. Ties keep input order.
func Recommend(phones []models.Phone, priority string, topN int) []Recommendation {
	if len(phones) == 0 {
		return nil
	}
	m := maximaOf(phones)
	recs := make([]Recommendation, len(phones))
	for i, p := range phones {
		recs[i] = Recommendation{Phone: p, Score: score(p, priority, m)}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Rating > recs[j].Rating
	})
	if topN > 0 && topN < len(recs) {
		recs = recs[:topN]
	}
	return recs
}

// Phones strips the scores.
func Phones(recs []Recommendation) []models.Phone {
	out := make([]models.Phone, len(recs))
	for i, r := range recs {
		out[i] = r.Phone
	}
	return out
}

var explanations = map[string]string{
	Performance:   "Focuses on RAM, processor power, and storage for smooth multitasking and gaming.",
	Camera:        "Prioritizes camera megapixels and image quality for photography enthusiasts.",
	Battery:       "Emphasizes battery capacity for long-lasting usage without frequent charging.",
	Display:       "Optimizes for screen size and quality for media consumption and viewing.",
	ValueForMoney: "Balanced approach considering price, features, and overall ratings.",
}

// Explain describes what a priority optimizes for.
func Explain(priority string) string {
	return explanations[NormalizePriority(priority)]
}
