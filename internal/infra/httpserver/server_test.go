package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/warmup"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScrape struct{ mock.Mock }

func (m *mockScrape) Scrape(ctx context.Context, req scrape.Request) (*scrape.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*scrape.Result)
	return res, args.Error(1)
}

type mockWarmup struct{ mock.Mock }

func (m *mockWarmup) Warmup(ctx context.Context, req warmup.Request) (*warmup.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*warmup.Result)
	return res, args.Error(1)
}

func newTestServer(s *mockScrape, w *mockWarmup) *httptest.Server {
	srv := New(zerolog.Nop(), time.Minute)
	srv.MountHandlers(&Handlers{Scrape: s, Warmup: w, Log: zerolog.Nop()})
	return httptest.NewServer(srv.Mux())
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(new(mockScrape), nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out["ok"])
}

func TestScrapeMissingURL(t *testing.T) {
	s := new(mockScrape)
	ts := newTestServer(s, nil)
	defer ts.Close()

	for _, body := range []string{`{}`, ``, `not json`, `{"max_pages":3}`} {
		status, out := post(t, ts.URL+"/scrape", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, "Missing 'url' in JSON body", out["error"], body)
	}
	s.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything)
}

func TestScrapeSuccessUsesDefaults(t *testing.T) {
	title := "Great"
	s := new(mockScrape)
	s.On("Scrape", mock.Anything, scrape.Request{
		URL: "https://www.tripadvisor.com/x", MaxPages: 50, Timeout: 15 * time.Second,
	}).Return(&scrape.Result{
		Reviews: []model.Review{{Title: &title, URL: "https://www.tripadvisor.com/x"}},
		Reason:  "no_next_control",
		Pages:   1,
	}, nil)
	ts := newTestServer(s, nil)
	defer ts.Close()

	status, out := post(t, ts.URL+"/scrape", `{"url":"https://www.tripadvisor.com/x","max_pages":"abc"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://www.tripadvisor.com/x", out["source"])
	assert.EqualValues(t, 1, out["count"])
	reviews := out["reviews"].([]any)
	require.Len(t, reviews, 1)
	first := reviews[0].(map[string]any)
	assert.Equal(t, "Great", first["title"])
	assert.Contains(t, first, "rating")
	assert.Nil(t, first["rating"])
	s.AssertExpectations(t)
}

func TestScrapeErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    any
	}{
		{&scrape.ChallengeError{URL: "u"}, http.StatusForbidden, "captcha"},
		{fmt.Errorf("打开页面: %w", scrape.ErrNavigationTimeout), http.StatusGatewayTimeout, nil},
		{errors.New("browser crashed"), http.StatusInternalServerError, nil},
	}
	for _, c := range cases {
		s := new(mockScrape)
		s.On("Scrape", mock.Anything, mock.Anything).Return(nil, c.err)
		ts := newTestServer(s, nil)

		status, out := post(t, ts.URL+"/scrape", `{"url":"https://www.tripadvisor.com/x"}`)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.err.Error(), out["error"])
		assert.Equal(t, c.typ, out["type"])
		ts.Close()
	}
}

func TestWarmup(t *testing.T) {
	w := new(mockWarmup)
	w.On("Warmup", mock.Anything, warmup.Request{Headed: true, Timeout: 30 * time.Second}).
		Return(&warmup.Result{OK: true, StorageState: "/data/ta_state.json", TargetURL: warmup.DefaultTargetURL}, nil).Once()
	w.On("Warmup", mock.Anything, warmup.Request{TargetURL: "https://example.com", Timeout: 5 * time.Second}).
		Return(nil, errors.New("chrome not found")).Once()
	ts := newTestServer(new(mockScrape), w)
	defer ts.Close()

	status, out := post(t, ts.URL+"/warmup", `{}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "/data/ta_state.json", out["storage_state"])

	status, out = post(t, ts.URL+"/warmup", `{"target_url":"https://example.com","headed":false,"timeout_ms":5000}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "chrome not found", out["error"])
	w.AssertExpectations(t)
}
