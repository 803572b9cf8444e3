package param

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingURL = errors.New("Missing 'url' in JSON body")
	ErrInvalidURL = errors.New("'url' must be an absolute http(s) URL")
)

const (
	DefaultMaxPages      = 50
	DefaultTimeoutMS     = 15000
	DefaultWarmupTimeout = 30000
)

// Int 宽松的整数：接受数字或数字字符串，其余情况视为未设置
type Int struct {
	Value int
	Set   bool
}

func (i *Int) UnmarshalJSON(b []byte) error {
	*i = Int{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	*i = Int{Value: int(f), Set: true}
	return nil
}

// Or 未设置或不为正数时返回 def
func (i Int) Or(def int) int {
	if !i.Set || i.Value <= 0 {
		return def
	}
	return i.Value
}

// Scrape POST /scrape 的请求体
type Scrape struct {
	URL          string `json:"url"`
	MaxPages     Int    `json:"max_pages"`
	TimeoutMS    Int    `json:"timeout_ms"`
	StorageState string `json:"storage_state"`
}

func (s *Scrape) Validate() error {
	s.URL = strings.TrimSpace(s.URL)
	if s.URL == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

func (s *Scrape) Pages() int { return s.MaxPages.Or(DefaultMaxPages) }

func (s *Scrape) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS.Or(DefaultTimeoutMS)) * time.Millisecond
}

// Warmup POST /warmup 的请求体，所有字段都可省略
type Warmup struct {
	StorageState string `json:"storage_state"`
	TargetURL    string `json:"target_url"`
	Headed       *bool  `json:"headed"`
	TimeoutMS    Int    `json:"timeout_ms"`
}

func (w *Warmup) IsHeaded() bool { return w.Headed == nil || *w.Headed }

func (w *Warmup) Timeout() time.Duration {
	return time.Duration(w.TimeoutMS.Or(DefaultWarmupTimeout)) * time.Millisecond
}
