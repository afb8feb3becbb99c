package embedder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  string
	texts []string
}

func (f *fakeEmbedder) EmbedString(_ context.Context, text string) ([]byte, []float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.fail != "" && strings.Contains(text, f.fail) {
		return nil, nil, errors.New("quota exceeded")
	}
	vec := []float32{float32(len(text)), 1}
	blob, err := ai.FloatsToBytes(vec)
	return blob, vec, err
}

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "phones.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = db.SavePhones(context.Background(), conn, []models.Phone{
		{FullName: "Samsung Galaxy S24", Brand: "Samsung", Price: 79999},
		{FullName: "Redmi Note 13", Brand: "Redmi", Price: 14999},
		{FullName: "Moto G54", Brand: "Moto", Price: 13999},
	})
	require.NoError(t, err)
	return conn
}

func TestRun_EmbedsMissingPhonesOnce(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	emb := &fakeEmbedder{}

	n, err := Run(ctx, conn, emb, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, emb.texts, 3)
	assert.Contains(t, emb.texts, models.Phone{FullName: "Moto G54", Brand: "Moto"}.SearchText())

	vectors, err := db.GetPhoneVectors(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, vectors, 3)

	n, err = Run(ctx, conn, emb, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, emb.texts, 3, "already embedded phones are skipped")
}

func TestRun_SkipsFailures(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	n, err := Run(ctx, conn, &fakeEmbedder{fail: "redmi"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := db.GetUnembeddedPhones(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, left, 1)
	assert.Contains(t, left, "Redmi Note 13")
}

func TestRun_StopsOnCancel(t *testing.T) {
	conn := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, conn, &fakeEmbedder{}, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
