package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/static"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/challenge"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/extract"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://www.tripadvisor.com/Attraction_Review-g1-d2-Reviews"

// listing 一页只有一张卡片，next 为空时没有下一页控件
func listing(title, next string) string {
	nav := ""
	if next != "" {
		nav = fmt.Sprintf(`<a aria-label="Next page" href="%s%s">Next</a>`, base, next)
	}
	return fmt.Sprintf(`<html><body>
<div data-automation="reviewCard"><span class="yCeTE">%s</span><span>Written May 1, 2024</span></div>
%s
</body></html>`, title, nav)
}

func newController(t *testing.T, pages static.MapFetcher, policy Policy, opts ...Option) (*Controller, *static.Page) {
	t.Helper()
	page := static.NewPage(pages)
	require.NoError(t, page.Navigate(context.Background(), base+"-p1.html"))
	opts = append([]Option{WithPacing(pacing.Pacing{Disabled: true})}, opts...)
	c := New(page, policy, challenge.NewDetector(zerolog.Nop()), extract.New(), opts...)
	c.Start()
	return c, page
}

// drain 一直翻到结束，返回经过的页数
func drain(t *testing.T, c *Controller) int {
	t.Helper()
	pages := 1
	for {
		done, err := c.Advance(context.Background())
		require.NoError(t, err)
		if done {
			return pages
		}
		pages++
		require.Less(t, pages, 100)
	}
}

func TestNoNextControl(t *testing.T) {
	c, _ := newController(t, static.MapFetcher{
		base + "-p1.html": listing("one", "-p2.html"),
		base + "-p2.html": listing("two", ""),
	}, DefaultPolicy())

	assert.Equal(t, 2, drain(t, c))
	assert.Equal(t, Done, c.State())
	assert.Equal(t, NoNextControl, c.Reason())
}

func TestNoProgressAfterTwoIdenticalFingerprints(t *testing.T) {
	c, _ := newController(t, static.MapFetcher{
		base + "-p1.html": listing("same", "-p2.html"),
		base + "-p2.html": listing("same", "-p3.html"),
		base + "-p3.html": listing("same", "-p4.html"),
		base + "-p4.html": listing("same", ""),
	}, DefaultPolicy())

	assert.Equal(t, 2, drain(t, c))
	assert.Equal(t, NoProgress, c.Reason())
}

func TestStallThresholdIsConfigurable(t *testing.T) {
	policy := DefaultPolicy()
	policy.StallThreshold = 1
	c, _ := newController(t, static.MapFetcher{
		base + "-p1.html": listing("same", "-p2.html"),
		base + "-p2.html": listing("same", ""),
	}, policy)

	assert.Equal(t, 1, drain(t, c))
	assert.Equal(t, NoProgress, c.Reason())
}

func TestLoopDetected(t *testing.T) {
	c, _ := newController(t, static.MapFetcher{
		base + "-p1.html": listing("one", "-p2.html"),
		base + "-p2.html": listing("two", "-p1.html"),
	}, DefaultPolicy())

	assert.Equal(t, 2, drain(t, c))
	assert.Equal(t, LoopDetected, c.Reason())
}

func TestMaxPagesReachedWithNextStillPresent(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxPages = 2
	c, page := newController(t, static.MapFetcher{
		base + "-p1.html": listing("one", "-p2.html"),
		base + "-p2.html": listing("two", "-p3.html"),
		base + "-p3.html": listing("three", ""),
	}, policy)

	assert.Equal(t, 2, drain(t, c))
	assert.Equal(t, MaxPagesReached, c.Reason())
	assert.True(t, c.HasNext())
	assert.Equal(t, base+"-p2.html", page.URL())
}

func TestChallengeAfterNavigation(t *testing.T) {
	pages := static.MapFetcher{
		base + "-p1.html": listing("one", "-p2.html"),
		base + "-p2.html": `<html><body><h1>Verification Required</h1></body></html>`,
	}

	c, _ := newController(t, pages, DefaultPolicy())
	assert.Equal(t, 1, drain(t, c))
	assert.Equal(t, Challenge, c.Reason())

	c, _ = newController(t, pages, DefaultPolicy(), WithResolver(func(context.Context, types.Page) error {
		return errors.New("operator gave up")
	}))
	assert.Equal(t, 1, drain(t, c))
	assert.Equal(t, Challenge, c.Reason())
}

func TestResolvedChallengeContinues(t *testing.T) {
	pages := static.MapFetcher{
		base + "-p1.html": listing("one", "-p2.html"),
		base + "-p2.html": `<html><body><h1>Verification Required</h1></body></html>`,
	}
	resolved := 0
	c, _ := newController(t, pages, DefaultPolicy(), WithResolver(func(ctx context.Context, p types.Page) error {
		resolved++
		return p.(*static.Page).Load(p.URL(), listing("two", ""))
	}))

	assert.Equal(t, 2, drain(t, c))
	assert.Equal(t, 1, resolved)
	assert.Equal(t, NoNextControl, c.Reason())
}

func TestUsable(t *testing.T) {
	page, err := static.FromHTML(base, `<html><body>
<a id="ok" href="/n">Next</a>
<a id="hidden" aria-hidden="true" href="/n">Next</a>
<a id="ariadis" aria-disabled="true" href="/n">Next</a>
<button id="dis" disabled>Next</button>
<a id="tab" tabindex="-1" href="/n">Next</a>
<ul><li disabled><a id="inli" href="/n">Next</a></li></ul>
<div style="display:none"><a id="invisible" href="/n">Next</a></div>
</body></html>`)
	require.NoError(t, err)

	for id, want := range map[string]bool{
		"ok": true, "hidden": false, "ariadis": false, "dis": false,
		"tab": false, "inli": false, "invisible": false,
	} {
		el, ok := page.Element("#" + id)
		require.True(t, ok, id)
		assert.Equal(t, want, Usable(el), id)
	}
}

func TestAdvanceOutsideParsing(t *testing.T) {
	c, _ := newController(t, static.MapFetcher{base + "-p1.html": listing("one", "")}, DefaultPolicy())
	done, err := c.Advance(context.Background())
	require.NoError(t, err)
	require.True(t, done)

	done, err = c.Advance(context.Background())
	assert.True(t, done)
	assert.Error(t, err)
}
