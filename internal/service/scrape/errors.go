package scrape

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrChallenge 遇到人机验证页
	ErrChallenge = errors.New("tripadvisor verification page encountered (CAPTCHA)")
	// ErrNavigationTimeout 导航或等待超出预算
	ErrNavigationTimeout = errors.New("navigation timeout")
)

// ChallengeError 记录出现验证页的 URL 和调试文件位置
type ChallengeError struct {
	URL      string
	Artifact string
}

func (e *ChallengeError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("%s: %s (html dumped to %s)", ErrChallenge, e.URL, e.Artifact)
	}
	return fmt.Sprintf("%s: %s", ErrChallenge, e.URL)
}

func (e *ChallengeError) Unwrap() error { return ErrChallenge }

// timeoutError 把 context 超时转换为 ErrNavigationTimeout，其它错误原样返回
func timeoutError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrNavigationTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsTimeout 判断错误是否属于导航超时
func IsTimeout(err error) bool {
	return errors.Is(err, ErrNavigationTimeout) || errors.Is(err, context.DeadlineExceeded)
}
