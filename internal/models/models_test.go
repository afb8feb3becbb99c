package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryBudget, Categorize(9999))
	assert.Equal(t, CategoryMidRange, Categorize(15000))
	assert.Equal(t, CategoryMidRange, Categorize(34999))
	assert.Equal(t, CategoryFlagship, Categorize(35000))
}

func TestSplitName(t *testing.T) {
	brand, model := SplitName("Samsung Galaxy S24 (Onyx Black, 256 GB)")
	assert.Equal(t, "Samsung", brand)
	assert.Equal(t, "Galaxy S24 (Onyx Black, 256 GB)", model)

	brand, model = SplitName("N/A")
	assert.Equal(t, "Unknown", brand)
	assert.Equal(t, "Unknown", model)

	brand, model = SplitName("   ")
	assert.Equal(t, "Unknown", brand)
	assert.Equal(t, "Unknown", model)
}

func TestUseCases(t *testing.T) {
	flagship := Phone{RAM: 12, CameraMP: 200, BatteryMAh: 5000, Price: 120000, Rating: 4.6}
	assert.Equal(t, []string{"High-end Gaming", "Professional Photography", "All-day Usage", "Reliability"}, flagship.UseCases())

	budget := Phone{RAM: 8, CameraMP: 50, BatteryMAh: 4500, Price: 14999, Rating: 4.2}
	assert.Equal(t, []string{"Gaming", "Photography", "Budget-Friendly"}, budget.UseCases())

	plain := Phone{RAM: 4, CameraMP: 12, BatteryMAh: 3000, Price: 30000, Rating: 4.0}
	assert.Equal(t, []string{"Everyday Use"}, plain.UseCases())
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0", FormatINR(0))
	assert.Equal(t, "₹999", FormatINR(999))
	assert.Equal(t, "₹1,000", FormatINR(1000))
	assert.Equal(t, "₹129,999", FormatINR(129999))
	assert.Equal(t, "-₹2,500", FormatINR(-2500))
}
