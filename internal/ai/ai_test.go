package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/logger"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"missing", "", ErrMissingAPIKey},
		{"whitespace", " AIzaSyA1234567890abcdefghijkl ", ErrMalformedAPIKey},
		{"embedded newline", "AIzaSyA1234567890\nabcdefghijkl", ErrMalformedAPIKey},
		{"placeholder", "your_key_here_please_replace", ErrMalformedAPIKey},
		{"too short", "AIzaShort", ErrMalformedAPIKey},
		{"valid", "AIzaSyA1234567890abcdefghijklmno", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewClient_RejectsBadKeyWithoutDialing(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(context.Background(), Config{APIKey: "changeme"})
	assert.ErrorIs(t, err, ErrMalformedAPIKey)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "AIza************wxyz", MaskAPIKey("AIza123456789012wxyz"))
	assert.Equal(t, "****", MaskAPIKey("abcd"))
}

func TestVectorRoundTripAndSimilarity(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	blob, err := FloatsToBytes(v)
	require.NoError(t, err)
	assert.Len(t, blob, 12)

	back, err := BytesToFloats(blob)
	require.NoError(t, err)
	assert.Equal(t, v, back)

	_, err = BytesToFloats([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-2, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func testClient(retries int) *Client {
	return &Client{maxRetries: retries, interval: time.Millisecond, log: logger.NewNop()}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := testClient(3).retry(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("503 unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := testClient(2).retry(context.Background(), "test", func() error {
		calls++
		return errors.New("still down")
	})
	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestRetry_BlockedIsPermanent(t *testing.T) {
	calls := 0
	err := testClient(5).retry(context.Background(), "test", func() error {
		calls++
		return &genai.BlockedError{}
	})
	var blocked *genai.BlockedError
	assert.ErrorAs(t, err, &blocked)
	assert.Equal(t, 1, calls)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}}},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
	}}
	assert.Equal(t, "Hello, world", responseText(resp))
}

func TestHistoryContents(t *testing.T) {
	got := historyContents([]Turn{{User: "hi", Assistant: "hello"}})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, genai.Text("hello"), got[1].Parts[0])
}
