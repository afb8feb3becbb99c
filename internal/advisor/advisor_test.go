package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/models"
)

func recs() []models.Phone {
	return []models.Phone{
		{FullName: "POCO X6 Pro", Price: 23999, Rating: 4.4, RAM: 8, Storage: 256, CameraMP: 64, BatteryMAh: 5000,
			DisplayInches: 6.67, Processor: "Dimensity 8300 Ultra", Category: "Mid-range"},
		{FullName: "Redmi Note 13", Price: 14999, Rating: 4.2, RAM: 6, Storage: 128, CameraMP: 108, BatteryMAh: 5000,
			DisplayInches: 6.67, Processor: "Dimensity 6080", Category: "Budget"},
		{FullName: "Moto G54", Price: 13999, Rating: 4.1, RAM: 8, Storage: 128, CameraMP: 50, BatteryMAh: 6000,
			DisplayInches: 6.5, Processor: "Unknown"},
	}
}

type recordingGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []ai.Request
}

func (g *recordingGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	return g.reply, g.err
}

type streamingGenerator struct {
	recordingGenerator
	chunks    []string
	streamErr error
}

func (g *streamingGenerator) Stream(_ context.Context, _ ai.Request, onChunk func(string) error) error {
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return g.streamErr
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "No phone recommendations available yet.", BuildContext(nil))

	ctx := BuildContext(recs())
	assert.Contains(t, ctx, "1. **POCO X6 Pro**")
	assert.Contains(t, ctx, "Price: ₹23,999")
	assert.Contains(t, ctx, "Use Cases: Gaming, Photography, All-day Usage, Budget-Friendly")
	assert.Contains(t, ctx, "Category: Standard", "missing category reads Standard")
}

func TestChat_SendsContextHistoryAndSettings(t *testing.T) {
	gen := &recordingGenerator{reply: "Go with the POCO."}
	a := New(gen, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, "Go with the POCO.", a.Chat(context.Background(), fmt.Sprintf("question %d", i), recs()))
	}
	require.Len(t, gen.reqs, 5)

	last := gen.reqs[4]
	assert.Contains(t, last.System, "expert smartphone advisor")
	assert.Contains(t, last.System, "POCO X6 Pro")
	assert.Contains(t, last.Prompt, "question 4")
	assert.InDelta(t, 0.7, last.Temperature, 1e-6)
	assert.InDelta(t, 0.9, last.TopP, 1e-6)
	assert.EqualValues(t, 1024, last.MaxTokens)

	// Only the last three exchanges travel with the request.
	require.Len(t, last.History, 3)
	assert.Equal(t, "question 1", last.History[0].User)
	assert.Equal(t, "question 3", last.History[2].User)
	assert.Empty(t, gen.reqs[0].History)

	assert.Len(t, a.History(), 5)
	a.ClearHistory()
	assert.Empty(t, a.History())
}

func TestChat_FallsBackWithoutRecordingHistory(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("429 quota")}
	a := New(gen, nil)

	answer := a.Chat(context.Background(), "best camera?", recs())
	assert.Contains(t, answer, "For photography, the **Redmi Note 13**")
	assert.Empty(t, a.History())

	assert.False(t, New(nil, nil).AIEnabled())
	assert.Equal(t, Fallback("hi", recs()), New(nil, nil).Chat(context.Background(), "hi", recs()))
}

func TestFallback(t *testing.T) {
	r := recs()
	tests := []struct {
		msg  string
		want string
	}{
		{"Good for PUBG?", "For gaming, I'd recommend the **POCO X6 Pro** with 8GB RAM"},
		{"which takes the best photo", "For photography, the **Redmi Note 13** stands out with its 108MP camera"},
		{"battery backup please", "For long battery life, go with the **Moto G54** featuring a 6000mAh battery"},
		{"I'm a student", "For students, the **Moto G54** is perfect! At ₹13,999"},
		{"poco vs redmi", "**POCO X6 Pro** vs **Redmi Note 13**"},
		{"what is the difference", "POCO X6 Pro is better for performance, while Redmi Note 13 excels in camera."},
		{"which one should I get", "Based on your preferences, I'd recommend the **POCO X6 Pro**!"},
		{"hello there", "I've analyzed the options for you! The **POCO X6 Pro**"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Contains(t, Fallback(tt.msg, r), tt.want)
		})
	}

	assert.Contains(t, Fallback("anything", nil), "get recommendations first")
	// "vs" only counts as a whole word.
	assert.NotContains(t, Fallback("devs favourite", r), " vs ")
}

func TestUseCase(t *testing.T) {
	r := recs()
	assert.Equal(t, "**For Gaming**: POCO X6 Pro with 8GB RAM and Dimensity 8300 Ultra is perfect for intense gaming sessions!", UseCase("gaming", r))
	assert.Contains(t, UseCase("Photography", r), "Redmi Note 13 with 108MP")
	assert.Contains(t, UseCase("battery", r), "Moto G54 with 6000mAh")
	assert.Contains(t, UseCase("student", r), "Moto G54 at ₹13,999")
	assert.Contains(t, UseCase("professional", r), "POCO X6 Pro with 4.4/5 rating")
	assert.Equal(t, "Top recommendation: POCO X6 Pro at ₹23,999", UseCase("travel", r))
	assert.Contains(t, UseCase("gaming", nil), "No recommendations available")
}

func TestUseCase_GamingTieBrokenByProcessor(t *testing.T) {
	r := []models.Phone{
		{FullName: "Slow", RAM: 8, Processor: "Helio G85"},
		{FullName: "Fast", RAM: 8, Processor: "Snapdragon 8 Gen 3"},
	}
	assert.Contains(t, UseCase("gaming", r), "Fast")
}

func TestPhoneDetails(t *testing.T) {
	p := recs()[1]

	sheet := New(nil, nil).PhoneDetails(context.Background(), p)
	assert.Equal(t, FormatDetails(p), sheet)
	assert.Contains(t, sheet, "**Price:** ₹14,999")
	assert.Contains(t, sheet, "- Processor: Dimensity 6080")

	gen := &recordingGenerator{reply: "A solid budget pick."}
	assert.Equal(t, "A solid budget pick.", New(gen, nil).PhoneDetails(context.Background(), p))
	assert.Contains(t, gen.reqs[0].Prompt, "detailed, engaging review")

	failing := &recordingGenerator{err: errors.New("down")}
	assert.Equal(t, sheet, New(failing, nil).PhoneDetails(context.Background(), p))
}

func TestStream(t *testing.T) {
	gen := &streamingGenerator{chunks: []string{"Go ", "with ", "POCO."}}
	a := New(gen, nil)

	var got []string
	answer, err := a.Stream(context.Background(), "best?", recs(), func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Go with POCO.", answer)
	assert.Equal(t, []string{"Go ", "with ", "POCO."}, got)
	require.Len(t, a.History(), 1)
	assert.Equal(t, "Go with POCO.", a.History()[0].Assistant)
}

func TestStream_FailureBeforeFirstChunkFallsBack(t *testing.T) {
	gen := &streamingGenerator{streamErr: errors.New("unavailable")}
	a := New(gen, nil)

	var b strings.Builder
	answer, err := a.Stream(context.Background(), "camera?", recs(), func(c string) error {
		b.WriteString(c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Fallback("camera?", recs()), answer)
	assert.Equal(t, answer, b.String())
	assert.Empty(t, a.History())
}

func TestStream_SinkErrorStops(t *testing.T) {
	gen := &streamingGenerator{chunks: []string{"a", "b", "c"}}
	sinkErr := errors.New("client went away")
	calls := 0
	_, err := New(gen, nil).Stream(context.Background(), "q", recs(), func(string) error {
		calls++
		return sinkErr
	})
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 1, calls)
}

func TestStream_NonStreamingGenerator(t *testing.T) {
	gen := &recordingGenerator{reply: "whole answer"}
	var got []string
	answer, err := New(gen, nil).Stream(context.Background(), "q", recs(), func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "whole answer", answer)
	assert.Equal(t, []string{"whole answer"}, got)
}

func TestAdvisor_ConcurrentChats(t *testing.T) {
	a := New(&recordingGenerator{reply: "ok"}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Chat(context.Background(), fmt.Sprintf("q%d", i), recs())
		}(i)
	}
	wg.Wait()
	assert.Len(t, a.History(), 20)
}
