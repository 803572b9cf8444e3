package scrape

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/rs/zerolog"
)

const (
	captchaDump   = "ta_captcha.html"
	noReviewsDump = "ta_no_reviews.html"
)

// Debugger 把当前页面写到调试目录，Dir 为空时不写任何文件
type Debugger struct {
	Dir string
	// Snapshots 每一页都截图 page_NNN.png
	Snapshots bool
	Log       zerolog.Logger
}

// DumpHTML 写出页面 HTML 并返回文件路径，失败时只记录日志
func (d *Debugger) DumpHTML(ctx context.Context, page types.Page, name string) string {
	if d == nil || d.Dir == "" {
		return ""
	}
	html, err := page.HTML(ctx)
	if err != nil {
		d.Log.Warn().Err(err).Str("file", name).Msg("读取页面HTML失败")
		return ""
	}
	path := filepath.Join(d.Dir, name)
	if err := d.write(path, []byte(html)); err != nil {
		d.Log.Warn().Err(err).Str("file", path).Msg("写入调试HTML失败")
		return ""
	}
	d.Log.Info().Str("file", path).Msg("已保存调试HTML")
	return path
}

// Screenshot 截图失败只记录日志
func (d *Debugger) Screenshot(ctx context.Context, page types.Page, name string) string {
	if d == nil || d.Dir == "" {
		return ""
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		d.Log.Debug().Err(err).Str("file", name).Msg("截图失败")
		return ""
	}
	path := filepath.Join(d.Dir, name)
	if err := d.write(path, png); err != nil {
		d.Log.Warn().Err(err).Str("file", path).Msg("写入截图失败")
		return ""
	}
	return path
}

// Snapshot 翻页过程中的逐页截图
func (d *Debugger) Snapshot(ctx context.Context, page types.Page, index int) {
	if d == nil || !d.Snapshots {
		return
	}
	d.Screenshot(ctx, page, fmt.Sprintf("page_%03d.png", index))
}

func (d *Debugger) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
