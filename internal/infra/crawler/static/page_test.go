package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `<html><body>
<div id="a" data-automation="reviewCard">
  <a href="/Profile/jo">Jo</a>
  <span lang="en">  Lovely
     place </span>
</div>
<div style="display: none"><a id="hidden" href="/x">x</a></div>
<nav><a aria-label="Next page" href="/p2">Next</a></nav>
<button disabled>Off</button>
</body></html>`

func TestElementQueries(t *testing.T) {
	p, err := FromHTML("https://example.com/p1", listing)
	require.NoError(t, err)

	card, ok := p.Element("[data-automation='reviewCard']")
	require.True(t, ok)
	assert.Len(t, p.Elements("[data-automation='reviewCard']"), 1)

	span, ok := card.Element("span[lang]")
	require.True(t, ok)
	assert.Equal(t, "Lovely place", span.Text())
	lang, ok := span.Attr("lang")
	assert.True(t, ok)
	assert.Equal(t, "en", lang)
	assert.True(t, span.Closest("[data-automation='reviewCard']"))
	assert.False(t, span.Closest("nav"))

	_, ok = card.Element("table")
	assert.False(t, ok)
	assert.Empty(t, card.Elements("table"))

	hidden, ok := p.Element("#hidden")
	require.True(t, ok)
	assert.False(t, hidden.Visible())

	btn, ok := p.Element("button")
	require.True(t, ok)
	assert.False(t, btn.Enabled())
}

func TestClickFollowsHref(t *testing.T) {
	pages := MapFetcher{
		"https://example.com/p1": listing,
		"https://example.com/p2": `<html><body><h1>second</h1></body></html>`,
	}
	p := NewPage(pages)
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, "https://example.com/p1"))

	next, ok := p.Element("a[aria-label='Next page']")
	require.True(t, ok)
	require.NoError(t, next.Click(ctx, 0))

	assert.Equal(t, "https://example.com/p2", p.URL())
	body, err := p.BodyText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", body)

	require.NoError(t, p.Navigate(ctx, "https://example.com/p2#REVIEWS"))
	assert.Equal(t, "https://example.com/p2#REVIEWS", p.URL())

	assert.Error(t, p.Navigate(ctx, "https://example.com/missing"))
}
