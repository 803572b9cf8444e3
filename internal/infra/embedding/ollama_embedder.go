package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
	einoembedding "github.com/cloudwego/eino/components/embedding"
)

// Embedder 把评论文本转换为向量
type Embedder interface {
	BatchSize() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type embedder struct {
	model     einoembedding.Embedder
	batchSize int
}

// InitEmbedder 初始化 ollama 嵌入器
func InitEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	host := cfg.Embedder.Host
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host
	}
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: host + ":" + strconv.Itoa(cfg.Embedder.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化嵌入模型失败: %w", err)
	}
	return NewEmbedder(model, cfg.Embedder.BatchSize), nil
}

// NewEmbedder 包装任意 eino 嵌入组件
func NewEmbedder(model einoembedding.Embedder, batchSize int) Embedder {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &embedder{model: model, batchSize: batchSize}
}

// BatchSize 返回批量处理大小
func (e *embedder) BatchSize() int {
	return e.batchSize
}

// Embed 按 BatchSize 分批调用模型
func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.model.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("向量化第 %d-%d 条失败: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("模型返回 %d 个向量，期望 %d 个", len(vectors), end-start)
		}
		// EmbedStrings 返回 float64，es 中按 float32 存储
		for _, v64 := range vectors {
			v32 := make([]float32, len(v64))
			for i, f := range v64 {
				v32[i] = float32(f)
			}
			out = append(out, v32)
		}
	}
	return out, nil
}
