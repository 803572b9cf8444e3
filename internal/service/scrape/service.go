package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Request 服务模式下的一次抓取请求
type Request struct {
	URL      string
	MaxPages int
	Timeout  time.Duration
	// StorageState 为空时使用服务的默认路径
	StorageState string
}

type Service interface {
	Scrape(ctx context.Context, req Request) (*Result, error)
}

// service 每个请求启动独立的浏览器会话，退出时一定关闭
type service struct {
	launcher     types.Launcher
	orchestrator *Orchestrator
	sem          *semaphore.Weighted
	headless     bool
	defaultState string
	states       sync.Map // path -> *sync.Mutex
	log          zerolog.Logger
}

func InitService(launcher types.Launcher, orchestrator *Orchestrator, maxSessions int, headless bool, defaultState string, log zerolog.Logger) Service {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &service{
		launcher:     launcher,
		orchestrator: orchestrator,
		sem:          semaphore.NewWeighted(int64(maxSessions)),
		headless:     headless,
		defaultState: defaultState,
		log:          log,
	}
}

func (s *service) Scrape(ctx context.Context, req Request) (*Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, timeoutError("等待浏览器会话", err)
	}
	defer s.sem.Release(1)

	state := req.StorageState
	if state == "" {
		state = s.defaultState
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	sess, err := s.launcher.Launch(ctx, types.LaunchOptions{
		StorageState: state,
		Headless:     s.headless,
		Timeout:      timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.log.Warn().Err(err).Msg("关闭浏览器失败")
		}
	}()

	return s.orchestrator.Scrape(ctx, &lockedSession{Session: sess, mu: s.stateLock(state)}, Target{
		URL:          req.URL,
		MaxPages:     req.MaxPages,
		Timeout:      timeout,
		StorageState: state,
	})
}

func (s *service) stateLock(path string) *sync.Mutex {
	mu, _ := s.states.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// lockedSession 同一个状态文件同时只有一个写入者
type lockedSession struct {
	types.Session
	mu *sync.Mutex
}

func (l *lockedSession) SaveState(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Session.SaveState(ctx, path)
}
