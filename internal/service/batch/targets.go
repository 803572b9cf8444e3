package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadTargets 读取 JSON 数组形式的相对路径，拼上 base 后返回，保持原顺序并去重
func LoadTargets(path, base string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取目标列表失败: %w", err)
	}
	var rel []string
	if err := json.Unmarshal(b, &rel); err != nil {
		return nil, fmt.Errorf("目标列表应为字符串数组 %s: %w", path, err)
	}
	base = strings.TrimRight(base, "/")
	seen := make(map[string]struct{}, len(rel))
	out := make([]string, 0, len(rel))
	for _, p := range rel {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		full := p
		if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
			if !strings.HasPrefix(p, "/") {
				p = "/" + p
			}
			full = base + p
		}
		if _, ok := seen[full]; ok {
			continue
		}
		seen[full] = struct{}{}
		out = append(out, full)
	}
	return out, nil
}

// EnterSignal 每读到一行发送一次信号，用于操作者在终端按回车确认
func EnterSignal(r io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- struct{}{}
		}
	}()
	return ch
}
