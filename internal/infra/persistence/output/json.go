package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
)

// JSONLAppender 每条评论一行 JSON，和 CSV 一样按目标追加
type JSONLAppender struct {
	mu   sync.Mutex
	path string
}

func NewJSONLAppender(path string) *JSONLAppender {
	return &JSONLAppender{path: path}
}

func (a *JSONLAppender) Path() string { return a.path }

func (a *JSONLAppender) Append(reviews []model.Review) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开 jsonl 失败: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, r := range reviews {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("写入 jsonl 失败: %w", err)
		}
	}
	return nil
}

// WriteJSON 整体写入一个带缩进的 JSON 文件，先写临时文件再改名
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
