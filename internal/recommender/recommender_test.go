package recommender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/models"
)

func testPhones() []models.Phone {
	return []models.Phone{
		{FullName: "Samsung Galaxy S24 Ultra", Brand: "Samsung", Price: 129999, Rating: 4.7,
			RAM: 12, Storage: 256, CameraMP: 200, BatteryMAh: 5000, DisplayInches: 6.8, Processor: "Snapdragon 8 Gen 3"},
		{FullName: "Redmi Note 13", Brand: "Redmi", Price: 14999, Rating: 4.2,
			RAM: 6, Storage: 128, CameraMP: 108, BatteryMAh: 5000, DisplayInches: 6.67, Processor: "Dimensity 6080"},
		{FullName: "Apple iPhone 15", Brand: "Apple", Price: 69999, Rating: 4.6,
			RAM: 6, Storage: 128, CameraMP: 48, BatteryMAh: 3349, DisplayInches: 6.1, Processor: "A16 Bionic"},
		{FullName: "POCO X6 Pro", Brand: "POCO", Price: 23999, Rating: 4.4,
			RAM: 8, Storage: 256, CameraMP: 64, BatteryMAh: 5000, DisplayInches: 6.67, Processor: "Dimensity 8300 Ultra"},
		{FullName: "Moto G54", Brand: "Motorola", Price: 13999, Rating: 4.1,
			RAM: 8, Storage: 128, CameraMP: 50, BatteryMAh: 6000, DisplayInches: 6.5, Processor: "Unknown"},
	}
}

func TestProcessorScore(t *testing.T) {
	assert.Equal(t, 100.0, ProcessorScore("Snapdragon 8 Gen 3"))
	assert.Equal(t, 90.0, ProcessorScore("Dimensity 8300 Ultra"))
	assert.Equal(t, 100.0, ProcessorScore("Qualcomm snapdragon 8 gen 3 for Galaxy"))
	assert.Equal(t, 50.0, ProcessorScore("Unknown"))
	assert.Equal(t, 50.0, ProcessorScore(""))
}

func TestScore_Arithmetic(t *testing.T) {
	phones := []models.Phone{
		{FullName: "A", Price: 10000, Rating: 5, RAM: 8, BatteryMAh: 5000},
		{FullName: "B", Price: 20000, Rating: 4, RAM: 4, BatteryMAh: 4000},
	}
	// Value for Money: 0.4*(1-10000/20000) + 0.3*(5/5) + 0.15*(8/8) + 0.15*(5000/5000)
	assert.InDelta(t, 80.0, Score(phones[0], ValueForMoney, phones), 1e-9)
	// 0.4*0 + 0.3*0.8 + 0.15*0.5 + 0.15*0.8
	assert.InDelta(t, 43.5, Score(phones[1], ValueForMoney, phones), 1e-9)

	// Unknown priorities score like Value for Money.
	assert.Equal(t, Score(phones[1], ValueForMoney, phones), Score(phones[1], "Vibes", phones))
}

func TestScore_ZeroMaxima(t *testing.T) {
	blank := []models.Phone{{FullName: "Blank"}}
	assert.Equal(t, 0.0, Score(blank[0], ValueForMoney, blank))
	assert.Equal(t, 0.0, Score(blank[0], Display, blank))
	// Only the default processor score contributes.
	assert.InDelta(t, 17.5, Score(blank[0], Performance, blank), 1e-9)
}

// Recommendations come back in non-increasing score order for every priority.
func TestRecommend_NonIncreasingOrder(t *testing.T) {
	for _, pr := range append(Priorities, "unknown") {
		recs := Recommend(testPhones(), pr, 0)
		require.Len(t, recs, 5, pr)
		for i := 1; i < len(recs); i++ {
			assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score, "priority %s position %d", pr, i)
			if recs[i-1].Score == recs[i].Score {
				assert.GreaterOrEqual(t, recs[i-1].Rating, recs[i].Rating)
			}
		}
	}
}

func TestRecommend_PicksByPriority(t *testing.T) {
	assert.Equal(t, "Samsung Galaxy S24 Ultra", Recommend(testPhones(), Performance, 1)[0].FullName)
	assert.Equal(t, "Samsung Galaxy S24 Ultra", Recommend(testPhones(), Camera, 1)[0].FullName)
	assert.Equal(t, "Moto G54", Recommend(testPhones(), Battery, 1)[0].FullName)
}

func TestRecommend_TopNAndTies(t *testing.T) {
	assert.Len(t, Recommend(testPhones(), Camera, 3), 3)
	assert.Len(t, Recommend(testPhones(), Camera, 50), 5)
	assert.Nil(t, Recommend(nil, Camera, 3))

	// Equal scores are broken by rating, then input order.
	twins := []models.Phone{
		{FullName: "first", Price: 100, Rating: 4.0},
		{FullName: "second", Price: 100, Rating: 4.5},
		{FullName: "third", Price: 100, Rating: 4.0},
	}
	recs := Recommend(twins, Display, 0)
	assert.Equal(t, []string{"second", "first", "third"}, []string{recs[0].FullName, recs[1].FullName, recs[2].FullName})
	assert.Equal(t, twins[1], Phones(recs)[0])
}

func TestExplain(t *testing.T) {
	assert.Contains(t, Explain(Battery), "battery capacity")
	assert.Equal(t, Explain(ValueForMoney), Explain("nonsense"))
}

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, ai.Request) (string, error) {
	return s.reply, s.err
}

func TestReason(t *testing.T) {
	p := testPhones()[0]
	ctx := context.Background()

	assert.Equal(t, "Perfect fit for Camera priority!", New(nil, nil).Reason(ctx, p, Camera))
	assert.Equal(t, "Stunning 200MP shots", New(stubGenerator{reply: "Stunning 200MP shots"}, nil).Reason(ctx, p, Camera))
	assert.Equal(t, "Excellent option for Battery!", New(stubGenerator{err: errors.New("down")}, nil).Reason(ctx, p, Battery))
}

func TestCompareRules(t *testing.T) {
	a, b := testPhones()[1], testPhones()[2]
	got := CompareRules(a, b)
	assert.Equal(t, []Comparison{
		{"price", "Redmi Note 13 is cheaper by ₹55,000"},
		{"ram", "Both have the same RAM"},
		{"camera", "Redmi Note 13 has 60MP better camera"},
		{"battery", "Redmi Note 13 has 1651mAh more battery"},
		{"rating", "Apple iPhone 15 has better ratings"},
	}, got)

	same := CompareRules(a, a)
	assert.Equal(t, "Both phones have the same price", same[0].Verdict)
	assert.Equal(t, "Both have similar ratings", same[4].Verdict)
}

func TestParseComparison(t *testing.T) {
	text := "Here is the comparison:\n" +
		"**Price**: Redmi is far cheaper\n" +
		"- Performance: iPhone wins\n" +
		"Camera: Redmi has more megapixels\n" +
		"Battery:\n" +
		"Overall Winner: Redmi, for value\n" +
		"camera: iPhone processes better\n"
	got := ParseComparison(text)
	assert.Equal(t, []Comparison{
		{"price", "Redmi is far cheaper"},
		{"performance", "iPhone wins"},
		{"camera", "iPhone processes better"},
		{"overall winner", "Redmi, for value"},
	}, got)

	assert.Empty(t, ParseComparison("no structure here"))
}

func TestCompare_FallsBack(t *testing.T) {
	a, b := testPhones()[1], testPhones()[2]
	ctx := context.Background()

	assert.Equal(t, CompareRules(a, b), New(nil, nil).Compare(ctx, a, b))
	assert.Equal(t, CompareRules(a, b), New(stubGenerator{err: errors.New("quota")}, nil).Compare(ctx, a, b))
	assert.Equal(t, CompareRules(a, b), New(stubGenerator{reply: "I cannot compare these."}, nil).Compare(ctx, a, b))

	got := New(stubGenerator{reply: "Price: Redmi\nOverall Winner: Redmi"}, nil).Compare(ctx, a, b)
	assert.Len(t, got, 2)
	assert.True(t, New(stubGenerator{}, nil).AIEnabled())
}
