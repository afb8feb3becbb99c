package models

import (
	"fmt"
	"strings"
)

// Phone holds the scraped data for a single handset.
type Phone struct {
	FullName      string  `json:"full_name" db:"full_name"`
	Brand         string  `json:"brand" db:"brand"`
	Model         string  `json:"model" db:"model"`
	Price         int     `json:"price" db:"price"`
	Rating        float64 `json:"rating" db:"rating"`
	RAM           int     `json:"ram" db:"ram"`
	Storage       int     `json:"storage" db:"storage"`
	CameraMP      int     `json:"camera_mp" db:"camera_mp"`
	BatteryMAh    int     `json:"battery_mah" db:"battery_mah"`
	DisplayInches float64 `json:"display_inches" db:"display_inches"`
	Processor     string  `json:"processor" db:"processor"`
	Category      string  `json:"category" db:"category"`
	Source        string  `json:"source" db:"source"`
	URL           string  `json:"url" db:"url"`
	Description   string  `json:"description,omitempty" db:"description"`
}

// Price categories.
const (
	CategoryBudget   = "Budget"
	CategoryMidRange = "Mid-range"
	CategoryFlagship = "Flagship"
)

// Categorize buckets a phone by its price in rupees.
func Categorize(price int) string {
	switch {
	case price < 15000:
		return CategoryBudget
	case price < 35000:
		return CategoryMidRange
	default:
		return CategoryFlagship
	}
}

// SplitName derives brand and model from a product title.
func SplitName(fullName string) (brand, model string) {
	fields := strings.Fields(fullName)
	if len(fields) == 0 || fullName == "N/A" {
		return "Unknown", "Unknown"
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// UseCases lists what the phone is good for, judged from its specs.
func (p Phone) UseCases() []string {
	var cases []string
	switch {
	case p.RAM >= 12:
		cases = append(cases, "High-end Gaming")
	case p.RAM >= 8:
		cases = append(cases, "Gaming")
	}
	switch {
	case p.CameraMP >= 100:
		cases = append(cases, "Professional Photography")
	case p.CameraMP >= 50:
		cases = append(cases, "Photography")
	}
	if p.BatteryMAh >= 5000 {
		cases = append(cases, "All-day Usage")
	}
	if p.Price > 0 && p.Price <= 25000 {
		cases = append(cases, "Budget-Friendly")
	}
	if p.Rating >= 4.5 {
		cases = append(cases, "Reliability")
	}
	if len(cases) == 0 {
		return []string{"Everyday Use"}
	}
	return cases
}

// CategoryOr returns the category, or def when unset.
func (p Phone) CategoryOr(def string) string {
	if p.Category == "" {
		return def
	}
	return p.Category
}

// SearchText is the document embedded for semantic search.
func (p Phone) SearchText() string {
	return strings.ToLower(strings.Join([]string{p.FullName, p.Brand, p.Model, p.Processor, p.Description}, " "))
}

// FormatINR renders a rupee amount with comma thousands separators, e.g. ₹129,999.
func FormatINR(amount int) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-₹" + b.String()
	}
	return "₹" + b.String()
}
