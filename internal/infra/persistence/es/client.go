package es

import (
	"context"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
)

// 所有的文档结构体要实现 model.Document
type TypedEsClient[D model.Document] interface {
	CreateIndexWithMapping(ctx context.Context) error
	// BulkIndexDocsWithID 按文档 ID 批量写入，返回成功写入的数量
	BulkIndexDocsWithID(ctx context.Context, docs []D) (int, error)
	CountDocs(ctx context.Context) (int64, error)
}
