package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"github.com/rs/zerolog"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	// 特别说明：这个实例仅用于获取索引名和 mapping，不用于存储数据
	schemaDoc D
	log       zerolog.Logger
}

func InitTypedEsClient[D model.Document](cfg *config.Config, log zerolog.Logger) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		Addresses: []string{
			cfg.Elasticsearch.Address,
		},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch client: %w", err)
	}
	return &typedEsClient[D]{client: typedClient, schemaDoc: D(new(model.ReviewDoc)), log: log}, nil
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence in es: %w", err)
	}
	if exists {
		tec.log.Debug().Str("index", index).Msg("index already exists, skip create")
		return nil
	}
	if _, err := tec.client.Indices.Create(index).Mappings(tec.schemaDoc.GetTypeMapping()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create index in es: %w", err)
	}
	tec.log.Info().Str("index", index).Msg("index created")
	return nil
}

func (tec *typedEsClient[D]) BulkIndexDocsWithID(ctx context.Context, docs []D) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	var (
		mu      sync.Mutex
		failure error
	)
	fail := func(err error) {
		mu.Lock()
		failure = errors.Join(failure, err)
		mu.Unlock()
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.schemaDoc.GetIndex(),
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			fail(fmt.Errorf("bulk indexer: %w", err))
		},
	})
	if err != nil {
		return 0, fmt.Errorf("error creating bulk indexer: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			fail(fmt.Errorf("marshal document %s: %w", doc.GetID(), err))
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.GetID(),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err == nil {
					err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
				}
				fail(fmt.Errorf("index document %s: %w", item.DocumentID, err))
			},
		})
		if err != nil {
			fail(err)
			break
		}
	}

	// 刷新并关闭批量索引器，确保所有文档都被处理
	if err := bi.Close(ctx); err != nil {
		fail(fmt.Errorf("error closing bulk indexer: %w", err))
	}
	stats := bi.Stats()
	tec.log.Info().Uint64("indexed", stats.NumIndexed).Uint64("failed", stats.NumFailed).Msg("bulk indexing completed")
	return int(stats.NumIndexed), failure
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.schemaDoc.GetIndex()).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count docs in es: %w", err)
	}
	return resp.Count, nil
}
