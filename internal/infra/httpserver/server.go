package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct{ mux *chi.Mux }

// New requestTimeout 为单个请求的上限，抓取可能翻很多页，应比普通 API 宽松
func New(log zerolog.Logger, requestTimeout time.Duration) *Server {
	m := chi.NewRouter()

	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	if requestTimeout > 0 {
		m.Use(Timeout(requestTimeout))
	}
	m.Use(Metrics)
	m.Use(Logger(log))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount 挂载额外的 handler，例如 /metrics
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
