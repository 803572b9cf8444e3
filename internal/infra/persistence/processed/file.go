package processed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileStore 纯文本文件，每行一个 URL，只追加
type FileStore struct {
	mu   sync.Mutex
	path string
	seen map[string]struct{}
	f    *os.File
}

func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, seen: make(map[string]struct{})}
	if err := s.load(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开 processed 文件失败: %w", err)
	}
	s.f = f
	return s, nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取 processed 文件失败: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.seen[line] = struct{}{}
		}
	}
	return sc.Err()
}

func (s *FileStore) Contains(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[url]
	return ok, nil
}

func (s *FileStore) Add(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[url]; ok {
		return nil
	}
	if _, err := s.f.WriteString(url + "\n"); err != nil {
		return fmt.Errorf("写入 processed 文件失败: %w", err)
	}
	s.seen[url] = struct{}{}
	return nil
}

// Len 已记录的 URL 数
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
