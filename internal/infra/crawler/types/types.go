package types

import (
	"context"
	"time"
)

// Element 页面中的一个节点。所有查找方法在元素不存在或读取失败时返回空值，不返回错误
type Element interface {
	// Elements 返回当前节点下匹配 selector 的所有节点，失败时返回空切片
	Elements(selector string) []Element
	// Element 返回第一个匹配的节点
	Element(selector string) (Element, bool)
	// Text 可见文本（innerText），已去除首尾空白
	Text() string
	// Attr 读取属性，不存在时 ok 为 false
	Attr(name string) (string, bool)
	// Closest 当前节点或其祖先是否匹配 selector
	Closest(selector string) bool
	Visible() bool
	Enabled() bool
	Click(ctx context.Context, timeout time.Duration) error
	// JSClick 通过脚本触发 click，用于绕过遮罩层
	JSClick(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
}

// Page 一个已打开的标签页
type Page interface {
	URL() string
	Navigate(ctx context.Context, url string) error
	// WaitLoad 等待当前文档加载完成
	WaitLoad(ctx context.Context) error
	Elements(selector string) []Element
	Element(selector string) (Element, bool)
	// WaitElement 在 timeout 内轮询 selector，超时返回 false
	WaitElement(ctx context.Context, selector string, timeout time.Duration) bool
	BodyText(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Scroll(ctx context.Context, dy float64) error
	PressEscape(ctx context.Context) error
	Eval(ctx context.Context, js string) error
}

// Session 一次抓取独占的浏览器上下文，Close 必须在每条退出路径上调用
type Session interface {
	Page() Page
	// SaveState 将 cookie 持久化到 path
	SaveState(ctx context.Context, path string) error
	Close() error
}

// Launcher 为每个目标创建独立的 Session
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

type LaunchOptions struct {
	StorageState string
	Headless     bool
	Timeout      time.Duration
}
