package embedding

import (
	"context"
	"errors"
	"testing"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lengthModel 以文本长度作为一维向量，并记录每批大小
type lengthModel struct {
	batches []int
	fail    bool
}

func (m *lengthModel) EmbedStrings(_ context.Context, texts []string, _ ...einoembedding.Option) ([][]float64, error) {
	if m.fail {
		return nil, errors.New("ollama unavailable")
	}
	m.batches = append(m.batches, len(texts))
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		out = append(out, []float64{float64(len(t))})
	}
	return out, nil
}

func TestEmbedBatches(t *testing.T) {
	model := &lengthModel{}
	e := NewEmbedder(model, 2)

	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, model.batches)
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vectors)
	assert.Equal(t, 2, e.BatchSize())
}

func TestEmbedError(t *testing.T) {
	_, err := NewEmbedder(&lengthModel{fail: true}, 0).Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "ollama unavailable")
}
