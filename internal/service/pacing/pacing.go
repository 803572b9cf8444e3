package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacing 交互步骤之间的随机等待
// 实际等待为 Min + rand*(Max-Min)，再乘以 Scale
type Pacing struct {
	Disabled bool
	Scale    float64
}

// Between 等待 [lo, hi) 之间的随机时长，ctx 取消时提前返回
func (p Pacing) Between(ctx context.Context, lo, hi time.Duration) {
	if p.Disabled {
		return
	}
	d := lo
	if hi > lo {
		d += time.Duration(rand.Float64() * float64(hi-lo))
	}
	if p.Scale > 0 {
		d = time.Duration(float64(d) * p.Scale)
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Step 普通交互之后的短暂停顿
func (p Pacing) Step(ctx context.Context) {
	p.Between(ctx, 600*time.Millisecond, 1100*time.Millisecond)
}

// Short 点击展开、滚动之间的停顿
func (p Pacing) Short(ctx context.Context) {
	p.Between(ctx, 200*time.Millisecond, 450*time.Millisecond)
}

// Page 翻页之后的停顿
func (p Pacing) Page(ctx context.Context) {
	p.Between(ctx, time.Second, 2*time.Second)
}
