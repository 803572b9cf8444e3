package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
)

// CSVAppender 追加写入评论，文件不存在或为空时先写表头
type CSVAppender struct {
	mu   sync.Mutex
	path string
}

func NewCSVAppender(path string) *CSVAppender {
	return &CSVAppender{path: path}
}

func (a *CSVAppender) Path() string { return a.path }

// Append 每次调用打开一次文件，中途退出时已写入的行不会丢
func (a *CSVAppender) Append(reviews []model.Review) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开 csv 失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(model.CSVHeader); err != nil {
			return err
		}
	}
	for _, r := range reviews {
		if err := w.Write(r.CSVRow()); err != nil {
			return fmt.Errorf("写入 csv 失败: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
