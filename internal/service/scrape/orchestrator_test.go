package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/static"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/challenge"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/extract"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pagination"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	page1 = "https://www.tripadvisor.com/Attraction_Review-g189158-d195138-Reviews-Belem_Tower.html"
	page2 = "https://www.tripadvisor.com/Attraction_Review-g189158-d195138-Reviews-or10-Belem_Tower.html"
)

func reviewCard(title, author string) string {
	return fmt.Sprintf(`<div data-automation="reviewCard">
  <a href="/Profile/%[2]s" data-automation="memberName">%[2]s</a>
  <svg data-automation="bubbleRatingImage"><title>5.0 of 5 bubbles</title></svg>
  <a href="/ShowUserReviews-g1-d2-r3"><span class="yCeTE">%[1]s</span></a>
  <div class="bgMZj"><span class="JguWG">A long and detailed description of the visit called %[1]s.</span></div>
  <span>Written May 5, 2024</span>
</div>`, title, author)
}

func listingPage(next string, cards ...string) string {
	nav := ""
	if next != "" {
		nav = fmt.Sprintf(`<nav aria-label="Pagination"><a aria-label="Next page" href="%s">Next</a></nav>`, next)
	}
	return fmt.Sprintf(`<html><body>
<button>Accept all</button>
<h1 data-test-target="mainH1"><span>Belém Tower</span> Unclaimed</h1>
%s
%s
</body></html>`, strings.Join(cards, "\n"), nav)
}

const verificationPage = `<html><body><h1>Verification Required</h1><p>Slide right to complete the puzzle.</p></body></html>`

// fakeSession 基于静态页面的会话，记录保存与关闭
type fakeSession struct {
	page   *static.Page
	saved  []string
	closed bool
}

func (f *fakeSession) Page() types.Page { return f.page }

func (f *fakeSession) SaveState(_ context.Context, path string) error {
	f.saved = append(f.saved, path)
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func newOrchestrator(opts ...Option) *Orchestrator {
	quiet := pacing.Pacing{Disabled: true}
	opts = append([]Option{WithPacing(quiet)}, opts...)
	return NewOrchestrator(challenge.NewDetector(zerolog.Nop()), extract.New(extract.WithPacing(quiet)), opts...)
}

func twoPages() static.MapFetcher {
	return static.MapFetcher{
		page1: listingPage(page2, reviewCard("First", "ann"), reviewCard("Second", "ben"), reviewCard("Third", "cat")),
		page2: listingPage("", reviewCard("Fourth", "dan"), reviewCard("Fifth", "eve")),
	}
}

func TestScrapeTwoPages(t *testing.T) {
	sess := &fakeSession{page: static.NewPage(twoPages())}
	res, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1, StorageState: "state.json"})
	require.NoError(t, err)

	require.Len(t, res.Reviews, 5)
	assert.Equal(t, pagination.NoNextControl, res.Reason)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, page1, res.Source)
	for i, r := range res.Reviews {
		want := page1
		if i >= 3 {
			want = page2
		}
		assert.Equal(t, want, r.URL, "review %d", i)
		assert.Nil(t, r.Attraction)
	}
	assert.Equal(t, ptr("Fourth"), res.Reviews[3].Title)
	assert.Equal(t, []string{"state.json"}, sess.saved)
}

func TestScrapeAnnotatesAttraction(t *testing.T) {
	sess := &fakeSession{page: static.NewPage(twoPages())}
	res, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1, WithAttraction: true})
	require.NoError(t, err)

	assert.Equal(t, "Belém Tower", res.Attraction)
	for _, r := range res.Reviews {
		assert.Equal(t, ptr("Belém Tower"), r.Attraction)
	}
	assert.Empty(t, sess.saved)
}

func TestScrapeMaxPages(t *testing.T) {
	sess := &fakeSession{page: static.NewPage(twoPages())}
	res, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1, MaxPages: 1})
	require.NoError(t, err)

	assert.Len(t, res.Reviews, 3)
	assert.Equal(t, pagination.MaxPagesReached, res.Reason)
}

func TestScrapeChallengeOnLanding(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{page: static.NewPage(static.MapFetcher{page1: verificationPage})}
	o := newOrchestrator(WithDebugger(&Debugger{Dir: dir}))

	res, err := o.Scrape(context.Background(), sess, Target{URL: page1, StorageState: "state.json"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChallenge)

	var ce *ChallengeError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, page1, ce.URL)
	assert.Equal(t, filepath.Join(dir, "ta_captcha.html"), ce.Artifact)
	html, err := os.ReadFile(ce.Artifact)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Verification Required")

	assert.Empty(t, res.Reviews)
	assert.Equal(t, pagination.Challenge, res.Reason)
	assert.Empty(t, sess.saved)
}

func TestScrapeChallengeMidwayKeepsPartialResults(t *testing.T) {
	pages := twoPages()
	pages[page2] = verificationPage
	sess := &fakeSession{page: static.NewPage(pages)}

	res, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1})
	assert.ErrorIs(t, err, ErrChallenge)
	assert.Len(t, res.Reviews, 3)
	assert.Equal(t, pagination.Challenge, res.Reason)
}

func TestScrapeManualResolverContinues(t *testing.T) {
	fetcher := twoPages()
	fetcher[page1] = verificationPage
	page := static.NewPage(fetcher)
	resolver := &ManualResolver{
		Detector: challenge.NewDetector(zerolog.Nop()),
		Poll:     5 * time.Millisecond,
		Ceiling:  time.Minute,
		Log:      zerolog.Nop(),
	}
	// 模拟操作者在浏览器里完成验证
	go func() {
		for {
			if body, _ := page.BodyText(context.Background()); strings.Contains(body, "Verification Required") {
				_ = page.Load(page1, twoPages()[page1])
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	res, err := newOrchestrator(WithResolver(resolver)).Scrape(context.Background(), &fakeSession{page: page}, Target{URL: page1})
	require.NoError(t, err)
	assert.Len(t, res.Reviews, 5)
}

func TestScrapeNoReviews(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{page: static.NewPage(static.MapFetcher{
		page1: `<html><body><h1>Belém Tower</h1><p>Nothing here yet.</p></body></html>`,
	})}
	res, err := newOrchestrator(WithDebugger(&Debugger{Dir: dir})).Scrape(context.Background(), sess, Target{URL: page1, StorageState: "s.json"})
	require.NoError(t, err)

	assert.Empty(t, res.Reviews)
	assert.Equal(t, NoReviews, res.Reason)
	assert.FileExists(t, filepath.Join(dir, "ta_no_reviews.html"))
	assert.Equal(t, []string{"s.json"}, sess.saved)
}

// slowFetcher 一直阻塞到 ctx 结束
type slowFetcher struct{}

func (slowFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestScrapeNavigationTimeout(t *testing.T) {
	sess := &fakeSession{page: static.NewPage(slowFetcher{})}
	res, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1, Timeout: 20 * time.Millisecond})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationTimeout)
	assert.True(t, IsTimeout(err))
	assert.Empty(t, res.Reviews)
}

func TestScrapeGenericFailure(t *testing.T) {
	sess := &fakeSession{page: static.NewPage(static.MapFetcher{})}
	_, err := newOrchestrator().Scrape(context.Background(), sess, Target{URL: page1})

	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.NotErrorIs(t, err, ErrChallenge)
}

func TestAttractionName(t *testing.T) {
	for html, want := range map[string]string{
		`<h1 data-test-target="mainH1"><span>Belém Tower</span></h1>`: "Belém Tower",
		`<h1 data-test-target="mainH1">Belém Tower Unclaimed</h1>`:    "Belém Tower",
		`<h1>Jerónimos Monastery Unclaimed</h1>`:                      "Jerónimos Monastery",
		`<p>no heading</p>`: UnknownAttraction,
	} {
		page, err := static.FromHTML(page1, "<html><body>"+html+"</body></html>")
		require.NoError(t, err)
		assert.Equal(t, want, AttractionName(page), html)
	}
}

func ptr[T any](v T) *T { return &v }
