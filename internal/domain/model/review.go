package model

import (
	"math"
	"strconv"
)

// Review 一条评论记录，除 URL 外所有字段都可能缺失
type Review struct {
	Attraction        *string  `json:"attraction,omitempty"`
	Title             *string  `json:"title"`
	Text              *string  `json:"text"`
	Rating            *float64 `json:"rating"`
	TravelDate        *string  `json:"travel_date"`
	WrittenDate       *string  `json:"written_date"`
	Language          *string  `json:"language"`
	Author            *string  `json:"author"`
	Location          *string  `json:"location"`
	ContributionCount *int     `json:"contribution_count"`
	HelpfulVotes      *int     `json:"helpful_votes"`
	URL               string   `json:"url"`
}

// WithAttraction 返回附带景点名的副本，原记录不变
func (r Review) WithAttraction(name string) Review {
	if name != "" {
		r.Attraction = &name
	}
	return r
}

// Fingerprint title|author|written，用于判断翻页后内容是否变化
func (r Review) Fingerprint() string {
	return deref(r.Title) + "|" + deref(r.Author) + "|" + deref(r.WrittenDate)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CSVHeader 批量模式输出的固定列顺序
var CSVHeader = []string{
	"attraction", "title", "text", "rating", "travel_date", "written_date",
	"language", "author", "location", "contribution_count", "helpful_votes", "url",
}

// CSVRow 按 CSVHeader 的顺序输出，缺失字段为空串
func (r Review) CSVRow() []string {
	return []string{
		deref(r.Attraction), deref(r.Title), deref(r.Text), formatRating(r.Rating),
		deref(r.TravelDate), deref(r.WrittenDate), deref(r.Language), deref(r.Author),
		deref(r.Location), formatInt(r.ContributionCount), formatInt(r.HelpfulVotes), r.URL,
	}
}

// formatRating 整数评分保留一位小数，如 4.0
func formatRating(v *float64) string {
	if v == nil {
		return ""
	}
	if *v == math.Trunc(*v) {
		return strconv.FormatFloat(*v, 'f', 1, 64)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
