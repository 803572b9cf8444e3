package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/es"
	"github.com/rs/zerolog"
)

// Service 把抓到的评论写入 es，embedder 为 nil 时只写原文
type Service interface {
	Index(ctx context.Context, reviews []model.Review) (int, error)
}

type service struct {
	client   es.TypedEsClient[*model.ReviewDoc]
	embedder embedding.Embedder
	embedSem chan struct{}
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	created bool
}

func InitService(client es.TypedEsClient[*model.ReviewDoc], embedder embedding.Embedder, embedSemSize int, log zerolog.Logger) Service {
	if embedSemSize <= 0 {
		embedSemSize = 1
	}
	return &service{
		client:   client,
		embedder: embedder,
		embedSem: make(chan struct{}, embedSemSize),
		now:      time.Now,
		log:      log,
	}
}

// Index 首次调用时建索引；向量化失败时仍写入不带向量的文档
func (s *service) Index(ctx context.Context, reviews []model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return 0, err
	}

	scrapedAt := s.now().UTC()
	docs := make([]*model.ReviewDoc, 0, len(reviews))
	for _, r := range reviews {
		docs = append(docs, r.ToDocument(scrapedAt))
	}

	var embedErr error
	if s.embedder != nil {
		embedErr = s.embedDocs(ctx, docs)
		if embedErr != nil {
			s.log.Warn().Err(embedErr).Int("docs", len(docs)).Msg("embedding failed, indexing without vectors")
		}
	}

	n, err := s.client.BulkIndexDocsWithID(ctx, docs)
	if err != nil {
		return n, fmt.Errorf("批量写入 es 失败: %w", err)
	}
	s.log.Info().Int("indexed", n).Bool("embedded", s.embedder != nil && embedErr == nil).Msg("reviews indexed")
	return n, nil
}

func (s *service) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	if err := s.client.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *service) embedDocs(ctx context.Context, docs []*model.ReviewDoc) error {
	select {
	case s.embedSem <- struct{}{}:
		defer func() { <-s.embedSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.GetEmbeddingString())
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return errors.New("向量数量与文档数量不一致")
	}
	for i, v := range vectors {
		docs[i].SetEmbedding(v)
	}
	return nil
}
