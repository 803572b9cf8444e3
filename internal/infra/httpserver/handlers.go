package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/warmup"
	"github.com/LouYuanbo1/reviewcrawler/param"
	"github.com/rs/zerolog"
)

const maxBody = 1 << 20

type Handlers struct {
	Scrape scrape.Service
	Warmup warmup.Service
	Log    zerolog.Logger
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

type scrapeBody struct {
	Source  string         `json:"source"`
	Count   int            `json:"count"`
	Reviews []model.Review `json:"reviews"`
	Reason  string         `json:"reason,omitempty"`
	Pages   int            `json:"pages"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/health", h.health)
	s.mux.Post("/scrape", h.scrape)
	if h.Warmup != nil {
		s.mux.Post("/warmup", h.warmup)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decode 请求体为空或不是合法 JSON 时按空对象处理
func (h *Handlers) decode(r *http.Request, dst any) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil || len(b) == 0 {
		return
	}
	if err := json.Unmarshal(b, dst); err != nil {
		h.Log.Debug().Err(err).Msg("ignore malformed JSON body")
	}
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) scrape(w http.ResponseWriter, r *http.Request) {
	var req param.Scrape
	h.decode(r, &req)
	if err := req.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	h.Log.Info().Str("url", req.URL).Int("max_pages", req.Pages()).Msg("received scrape request")

	res, err := h.Scrape.Scrape(r.Context(), scrape.Request{
		URL:          req.URL,
		MaxPages:     req.Pages(),
		Timeout:      req.Timeout(),
		StorageState: req.StorageState,
	})
	if err != nil {
		status, body := errorStatus(err)
		h.Log.Warn().Err(err).Int("status", status).Str("url", req.URL).Msg("scrape failed")
		h.writeJSON(w, status, body)
		return
	}
	reviews := res.Reviews
	if reviews == nil {
		reviews = []model.Review{}
	}
	h.writeJSON(w, http.StatusOK, scrapeBody{
		Source:  req.URL,
		Count:   len(reviews),
		Reviews: reviews,
		Reason:  string(res.Reason),
		Pages:   res.Pages,
	})
}

// errorStatus 验证页 403，超时 504，其它 500
func errorStatus(err error) (int, errorBody) {
	switch {
	case errors.Is(err, scrape.ErrChallenge):
		return http.StatusForbidden, errorBody{Error: err.Error(), Type: "captcha"}
	case scrape.IsTimeout(err):
		return http.StatusGatewayTimeout, errorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func (h *Handlers) warmup(w http.ResponseWriter, r *http.Request) {
	var req param.Warmup
	h.decode(r, &req)

	res, err := h.Warmup.Warmup(r.Context(), warmup.Request{
		StorageState: req.StorageState,
		TargetURL:    req.TargetURL,
		Headed:       req.IsHeaded(),
		Timeout:      req.Timeout(),
	})
	if err != nil {
		h.Log.Warn().Err(err).Msg("warmup failed")
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
