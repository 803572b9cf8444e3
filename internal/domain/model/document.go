package model

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// 所有写入 es 的文档结构体要实现这些函数
type Document interface {
	*ReviewDoc
	GetID() string
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
	GetEmbeddingString() string
	SetEmbedding(embedding []float32)
	GetEmbedding() []float32
}

const ReviewIndex = "reviews"

// ReviewDoc es 中的评论文档
type ReviewDoc struct {
	ID                string    `json:"id"`
	Attraction        string    `json:"attraction,omitempty"`
	Title             string    `json:"title,omitempty"`
	Text              string    `json:"text,omitempty"`
	Rating            *float64  `json:"rating,omitempty"`
	TravelDate        string    `json:"travel_date,omitempty"`
	WrittenDate       string    `json:"written_date,omitempty"`
	Language          string    `json:"language,omitempty"`
	Author            string    `json:"author,omitempty"`
	Location          string    `json:"location,omitempty"`
	ContributionCount *int      `json:"contribution_count,omitempty"`
	HelpfulVotes      *int      `json:"helpful_votes,omitempty"`
	URL               string    `json:"url"`
	ScrapedAt         time.Time `json:"scraped_at"`
	Embedding         []float32 `json:"embedding,omitempty"`
}

// ToDocument id 为 sha1(url + 指纹)，同一页同一条评论重复索引时会覆盖
func (r Review) ToDocument(scrapedAt time.Time) *ReviewDoc {
	sum := sha1.Sum([]byte(r.URL + "#" + r.Fingerprint()))
	return &ReviewDoc{
		ID:                hex.EncodeToString(sum[:]),
		Attraction:        deref(r.Attraction),
		Title:             deref(r.Title),
		Text:              deref(r.Text),
		Rating:            r.Rating,
		TravelDate:        deref(r.TravelDate),
		WrittenDate:       deref(r.WrittenDate),
		Language:          deref(r.Language),
		Author:            deref(r.Author),
		Location:          deref(r.Location),
		ContributionCount: r.ContributionCount,
		HelpfulVotes:      r.HelpfulVotes,
		URL:               r.URL,
		ScrapedAt:         scrapedAt,
	}
}

func (d *ReviewDoc) GetID() string    { return d.ID }
func (d *ReviewDoc) GetIndex() string { return ReviewIndex }

// GetEmbeddingString 标题和正文拼接后作为向量化输入
func (d *ReviewDoc) GetEmbeddingString() string {
	if d.Title == "" {
		return d.Text
	}
	return d.Title + "\n" + d.Text
}

func (d *ReviewDoc) SetEmbedding(embedding []float32) { d.Embedding = embedding }
func (d *ReviewDoc) GetEmbedding() []float32          { return d.Embedding }

func (d *ReviewDoc) GetTypeMapping() *types.TypeMapping {
	dims := 768
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"id":                 types.NewKeywordProperty(),
			"attraction":         types.NewKeywordProperty(),
			"title":              types.NewTextProperty(),
			"text":               types.NewTextProperty(),
			"rating":             types.NewFloatNumberProperty(),
			"travel_date":        types.NewKeywordProperty(),
			"written_date":       types.NewKeywordProperty(),
			"language":           types.NewKeywordProperty(),
			"author":             types.NewKeywordProperty(),
			"location":           types.NewKeywordProperty(),
			"contribution_count": types.NewIntegerNumberProperty(),
			"helpful_votes":      types.NewIntegerNumberProperty(),
			"url":                types.NewKeywordProperty(),
			"scraped_at":         types.NewDateProperty(),
			"embedding": &types.DenseVectorProperty{
				Dims: &dims,
			},
		},
	}
}
