package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestEmbed_IsUnitLengthAndDeterministic(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 64})

	a, err := svc.Embed(context.Background(), "The quarterly report covers revenue")
	require.NoError(t, err)
	b, err := svc.Embed(context.Background(), "The quarterly report covers revenue")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 8})

	vec, err := svc.Embed(context.Background(), "   ...  ")

	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestEmbed_SharedWordsScoreHigher(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	query, _ := svc.Embed(ctx, "vacation policy days")
	related, _ := svc.Embed(ctx, "The vacation policy grants twenty days per year.")
	unrelated, _ := svc.Embed(ctx, "Kubernetes pods restart after a crash loop.")

	assert.Greater(t,
		domain.CosineSimilarity(query, related),
		domain.CosineSimilarity(query, unrelated))
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	batch, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	alpha, _ := svc.Embed(ctx, "alpha")
	beta, _ := svc.Embed(ctx, "beta")
	assert.Equal(t, alpha, batch[0])
	assert.Equal(t, beta, batch[1])
}

func TestEmbed_CancelledContext(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.EmbedBatch(ctx, []string{"text"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Hello World", []string{"hello", "world"}},
		{"keeps apostrophes", "l'école d'été", []string{"l'école", "d'été"}},
		{"numbers", "Q3 2024 results", []string{"q", "3", "2024", "results"}},
		{"punctuation only", "--- !!", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}
