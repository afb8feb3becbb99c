package searcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/models"
)

// topicEmbedder maps text onto three topic axes plus a small constant.
type topicEmbedder struct {
	calls int
	err   error
}

func (e *topicEmbedder) EmbedString(_ context.Context, text string) ([]byte, []float32, error) {
	e.calls++
	if e.err != nil {
		return nil, nil, e.err
	}
	text = strings.ToLower(text)
	vec := []float32{0, 0, 0, 0.1}
	for i, topic := range []string{"camera", "gaming", "battery"} {
		if strings.Contains(text, topic) {
			vec[i] = 1
		}
	}
	blob, err := ai.FloatsToBytes(vec)
	return blob, vec, err
}

func seed(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "phones.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	phones := []models.Phone{
		{FullName: "Pixel 8", Brand: "Pixel", Description: "camera flagship"},
		{FullName: "ROG Phone 8", Brand: "ROG", Description: "gaming beast"},
		{FullName: "Moto G54", Brand: "Moto", Description: "battery monster"},
		{FullName: "Galaxy S24", Brand: "Galaxy", Description: "camera and gaming"},
	}
	_, err = db.SavePhones(ctx, conn, phones)
	require.NoError(t, err)

	emb := &topicEmbedder{}
	for _, p := range phones {
		blob, _, err := emb.EmbedString(ctx, p.SearchText())
		require.NoError(t, err)
		require.NoError(t, db.UpdateEmbedding(ctx, conn, p.FullName, blob))
	}
	return conn
}

func TestPerform_RanksAndFilters(t *testing.T) {
	conn := seed(t)
	emb := &topicEmbedder{}

	results, err := Perform(context.Background(), conn, emb, "best camera", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2, "unrelated phones fall below the threshold")
	assert.Equal(t, "Pixel 8", results[0].Phone.FullName)
	assert.Equal(t, "Galaxy S24", results[1].Phone.FullName)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(DefaultMinScore))
	}

	top, err := Perform(context.Background(), conn, emb, "best camera", Options{TopN: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Pixel 8", top[0].Phone.FullName)
}

func TestPerform_CachesQueryVectors(t *testing.T) {
	ctx := context.Background()
	conn := seed(t)
	emb := &topicEmbedder{}

	_, err := Perform(ctx, conn, emb, "gaming phone", Options{})
	require.NoError(t, err)
	_, err = Perform(ctx, conn, emb, "  gaming phone ", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)

	history, err := db.ListSearchHistory(ctx, conn)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "gaming phone", history[0].QueryText)
}

func TestPerform_Errors(t *testing.T) {
	conn := seed(t)

	_, err := Perform(context.Background(), conn, &topicEmbedder{}, "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	apiErr := errors.New("quota exceeded")
	_, err = Perform(context.Background(), conn, &topicEmbedder{err: apiErr}, "battery", Options{})
	assert.ErrorIs(t, err, apiErr)

	history, err := db.ListSearchHistory(context.Background(), conn)
	require.NoError(t, err)
	assert.Empty(t, history, "failed lookups are not cached")
}
