package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func TestLruEmbedderServesHitsFromCache(t *testing.T) {
	upstream := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(upstream, 128, time.Minute)

	first, err := cached.EmbedBatch(context.Background(), []string{"aa", "bbb"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, upstream.batches, 1)

	// Second call mixes one hit and one miss; only the miss goes upstream.
	second, err := cached.EmbedBatch(context.Background(), []string{"aa", "cccc"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, []float32{2}, second[0])
	require.Equal(t, []float32{4}, second[1])
	require.Len(t, upstream.batches, 2)
	require.Equal(t, []string{"cccc"}, upstream.batches[1])
}

func TestLruEmbedderTaskTypeIsolation(t *testing.T) {
	upstream := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(upstream, 128, time.Minute)

	_, err := cached.EmbedBatch(context.Background(), []string{"same"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	_, err = cached.EmbedBatch(context.Background(), []string{"same"}, "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Len(t, upstream.batches, 2)
}

func TestWrapDisabled(t *testing.T) {
	upstream := &countingEmbedder{}
	require.Same(t, upstream, WrapLruCacheToEmbedder(upstream, 0, time.Minute).(*countingEmbedder))
}
