package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
	"mspro-labs/phone-advisor/internal/searcher"
)

func samplePhones() []models.Phone {
	return []models.Phone{
		{FullName: "Redmi Note 13", Brand: "Redmi", Price: 14999, Rating: 4.2, RAM: 6, Storage: 128,
			CameraMP: 108, BatteryMAh: 5000, DisplayInches: 6.67, Processor: "Dimensity 6080"},
		{FullName: "Moto G54", Brand: "Motorola", Price: 13999, Rating: 4.1, RAM: 8, Storage: 128,
			CameraMP: 50, BatteryMAh: 6000, DisplayInches: 6.5, Processor: "Dimensity 7020"},
	}
}

func TestRenderPhones(t *testing.T) {
	var buf bytes.Buffer
	renderPhones(&buf, samplePhones())
	out := buf.String()
	assert.Contains(t, out, "Redmi Note 13")
	assert.Contains(t, out, "₹14,999")
	assert.Contains(t, out, "108MP")
	assert.Contains(t, out, "6000mAh")
	assert.Contains(t, strings.ToLower(out), "2 phones", "footer is upper-cased by the style")
}

func TestRenderRecommendations_Reasons(t *testing.T) {
	recs := recommender.Recommend(samplePhones(), recommender.Battery, 0)
	require.Len(t, recs, 2)

	var plain, withReasons bytes.Buffer
	renderRecommendations(&plain, recs, nil)
	renderRecommendations(&withReasons, recs, []string{"Huge battery", "Great camera"})

	assert.NotContains(t, plain.String(), "Why")
	assert.Contains(t, withReasons.String(), "Huge battery")
	assert.Less(t, strings.Index(plain.String(), "Moto G54"), strings.Index(plain.String(), "Redmi Note 13"))
}

func TestRenderComparison(t *testing.T) {
	a, b := samplePhones()[0], samplePhones()[1]
	var buf bytes.Buffer
	renderComparison(&buf, a, b, recommender.CompareRules(a, b))
	assert.Contains(t, buf.String(), "Moto G54 is cheaper by ₹1,000")
	assert.Contains(t, buf.String(), "4.2/5")
}

func TestRenderSearchResults(t *testing.T) {
	var buf bytes.Buffer
	renderSearchResults(&buf, []searcher.Result{{Phone: samplePhones()[1], Score: 0.875}})
	assert.Contains(t, buf.String(), "87.5%")
	assert.Contains(t, buf.String(), "Moto G54")
}

func TestMatchPriority(t *testing.T) {
	p, err := matchPriority("camera")
	require.NoError(t, err)
	assert.Equal(t, recommender.Camera, p)

	p, err = matchPriority(" value for money ")
	require.NoError(t, err)
	assert.Equal(t, recommender.ValueForMoney, p)

	_, err = matchPriority("Gaming")
	assert.ErrorContains(t, err, `unknown priority "Gaming"`)
	assert.ErrorContains(t, err, "Performance")
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"serve", "scrape", "import", "embed", "search", "recommend", "compare", "show", "chat", "verify"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
	c, _, err := rootCmd.Find([]string{"search", "history"})
	require.NoError(t, err)
	assert.Equal(t, "history", c.Name())
}

func TestChatLoop_RuleBased(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(strings.NewReader("/battery\nwhich is best for pubg?\n/clear\n/quit\nnever read\n"))
	cmd.SetOut(&out)

	require.NoError(t, chatLoop(cmd, advisor.New(nil, nil), samplePhones()))
	got := out.String()
	assert.Contains(t, got, "rule based")
	assert.Contains(t, got, "**For Battery Life**: Moto G54")
	assert.Contains(t, got, "For gaming, I'd recommend the **Moto G54**")
	assert.Contains(t, got, "Conversation cleared.")
}

func TestChatLoop_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetIn(pr)
	cmd.SetOut(io.Discard)

	done := make(chan error, 1)
	go func() { done <- chatLoop(cmd, advisor.New(nil, nil), samplePhones()) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("chat loop kept waiting for input after cancellation")
	}
}
