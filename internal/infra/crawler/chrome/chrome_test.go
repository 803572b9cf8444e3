package chrome

import (
	"testing"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestBlocked(t *testing.T) {
	for url, want := range map[string]bool{
		"https://securepubads.g.doubleclick.net/tag/js/gpt.js":        true,
		"https://www.googletagmanager.com/gtm.js?id=GTM-1":            true,
		"https://www.facebook.com/tr?id=1&ev=PageView":                true,
		"https://geo.captcha-delivery.com/captcha/?initialCid=abc":    false,
		"https://js.datadome.co/tags.js":                              false,
		"https://www.tripadvisor.com/Attraction_Review-g1-d2-Reviews": false,
		"https://static.tacdn.com/assets/Attraction_Review.bundle.js": false,
	} {
		assert.Equal(t, want, Blocked(url), url)
	}
}

func TestRodCookieRoundTrip(t *testing.T) {
	in := session.Cookie{
		Name: "TASession", Value: "v", Domain: ".tripadvisor.com", Path: "/",
		Expires: 1893456000, HTTPOnly: true, Secure: true, SameSite: "Lax",
	}
	p := toRodCookieParam(in)
	assert.Equal(t, proto.TimeSinceEpoch(1893456000), p.Expires)
	assert.Equal(t, proto.NetworkCookieSameSiteLax, p.SameSite)

	out := fromRodCookie(&proto.NetworkCookie{
		Name: p.Name, Value: p.Value, Domain: p.Domain, Path: p.Path,
		Expires: 1893456000, HTTPOnly: p.HTTPOnly, Secure: p.Secure, SameSite: p.SameSite,
	})
	assert.Equal(t, in, out)

	sc := toRodCookieParam(session.Cookie{Name: "s", Expires: -1})
	assert.Zero(t, sc.Expires)
}
