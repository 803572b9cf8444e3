package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/static"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/output"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/processed"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/challenge"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/extract"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://www.tripadvisor.com"

func card(title string) string {
	return fmt.Sprintf(`<div data-automation="reviewCard">
  <a href="/Profile/x" data-automation="memberName">x</a>
  <a href="/ShowUserReviews-g1-d2-r3"><span class="yCeTE">%s</span></a>
  <span>Written May 5, 2024</span>
</div>`, title)
}

func attraction(name string, cards ...string) string {
	return fmt.Sprintf(`<html><body><h1 data-test-target="mainH1"><span>%s</span></h1>%s</body></html>`,
		name, strings.Join(cards, "\n"))
}

type staticSession struct{ page *static.Page }

func (s staticSession) Page() types.Page                        { return s.page }
func (s staticSession) SaveState(context.Context, string) error { return nil }
func (s staticSession) Close() error                            { return nil }

type recordingIndexer struct{ batches [][]model.Review }

func (r *recordingIndexer) Index(_ context.Context, reviews []model.Review) (int, error) {
	r.batches = append(r.batches, reviews)
	return len(reviews), nil
}

func newRunner(t *testing.T, store processed.Store, opts ...Option) *Runner {
	t.Helper()
	quiet := pacing.Pacing{Disabled: true}
	o := scrape.NewOrchestrator(challenge.NewDetector(zerolog.Nop()), extract.New(extract.WithPacing(quiet)),
		scrape.WithPacing(quiet), scrape.WithMode("batch"))
	return NewRunner(o, store, opts...)
}

func TestRunWritesAndMarksProcessed(t *testing.T) {
	dir := t.TempDir()
	a := base + "/Attraction_Review-g1-d1-Reviews-A.html"
	b := base + "/Attraction_Review-g1-d2-Reviews-B.html"
	c := base + "/Attraction_Review-g1-d3-Reviews-C.html"
	blocked := base + "/Attraction_Review-g1-d4-Reviews-D.html"
	page := static.NewPage(static.MapFetcher{
		a:       attraction("Alpha", card("one"), card("two")),
		b:       attraction("Beta"),
		c:       attraction("Gamma", card("three")),
		blocked: `<html><body><h1>Verification Required</h1></body></html>`,
	})

	store, err := processed.OpenFile(filepath.Join(dir, "processed_urls.txt"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Add(context.Background(), c))

	csvPath := filepath.Join(dir, "reviews.csv")
	ix := &recordingIndexer{}
	r := newRunner(t, store,
		WithSinks(output.NewCSVAppender(csvPath)),
		WithIndexer(ix),
		WithInterval(time.Millisecond),
	)

	sum, err := r.Run(context.Background(), staticSession{page}, []string{a, b, c, a + "#REVIEWS", blocked})
	require.NoError(t, err)
	assert.Equal(t, Summary{Targets: 5, Skipped: 2, Done: 2, Failed: 1, Reviews: 2}, sum)

	for url, want := range map[string]bool{a: true, b: true, blocked: false} {
		ok, err := store.Contains(context.Background(), url)
		require.NoError(t, err)
		assert.Equal(t, want, ok, url)
	}

	body, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Alpha,one,"))
	require.Len(t, ix.batches, 1)
	assert.Len(t, ix.batches[0], 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	store, err := processed.OpenFile(filepath.Join(t.TempDir(), "p.txt"))
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := newRunner(t, store).Run(ctx, staticSession{static.NewPage(static.MapFetcher{})}, []string{base + "/x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Done)
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		"/Attraction_Review-g1-d1-Reviews-A.html",
		"Attraction_Review-g1-d2-Reviews-B.html",
		"https://www.tripadvisor.co.uk/Attraction_Review-g1-d3-Reviews-C.html",
		"/Attraction_Review-g1-d1-Reviews-A.html",
		""
	]`), 0o644))

	got, err := LoadTargets(path, base+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "/Attraction_Review-g1-d1-Reviews-A.html",
		base + "/Attraction_Review-g1-d2-Reviews-B.html",
		"https://www.tripadvisor.co.uk/Attraction_Review-g1-d3-Reviews-C.html",
	}, got)

	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))
	_, err = LoadTargets(path, base)
	assert.Error(t, err)
}

func TestEnterSignal(t *testing.T) {
	ch := EnterSignal(strings.NewReader("\n\n"))
	for range 2 {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("no signal")
		}
	}
}
