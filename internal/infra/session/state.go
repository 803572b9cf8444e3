package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Cookie 字段名与 CDP Network.Cookie 保持一致，rod 与 chromedp 可以直接互转
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// State 浏览器会话快照，对核心逻辑是不透明的
type State struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

type Origin struct {
	Origin       string           `json:"origin"`
	LocalStorage []LocalStorageKV `json:"localStorage"`
}

type LocalStorageKV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Load 读取 path，文件不存在时返回 (nil, nil)
func Load(path string) (*State, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话状态失败: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("解析会话状态失败 %s: %w", path, err)
	}
	return &st, nil
}

// Save 先写临时文件再 rename，避免读到半写入的状态
func Save(path string, st *State) error {
	if path == "" {
		return errors.New("storage state path is empty")
	}
	if st == nil {
		st = &State{}
	}
	if st.Cookies == nil {
		st.Cookies = []Cookie{}
	}
	if st.Origins == nil {
		st.Origins = []Origin{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建会话目录失败: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("写入会话状态失败: %w", err)
	}
	return os.Rename(tmp, path)
}

// HTTPCookies 转换为 net/http 的 cookie，供静态抓取的 cookie jar 使用
func (s *State) HTTPCookies() []*http.Cookie {
	if s == nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		// -1 表示会话 cookie
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			hc.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		switch c.SameSite {
		case "Strict":
			hc.SameSite = http.SameSiteStrictMode
		case "Lax":
			hc.SameSite = http.SameSiteLaxMode
		case "None":
			hc.SameSite = http.SameSiteNoneMode
		}
		out = append(out, hc)
	}
	return out
}

// Domains 状态中出现过的 cookie 域名
func (s *State) Domains() []string {
	if s == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range s.Cookies {
		if c.Domain != "" && !seen[c.Domain] {
			seen[c.Domain] = true
			out = append(out, c.Domain)
		}
	}
	return out
}
