package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "reviewcrawler"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"route", "method"},
	)
	Scrapes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "scrapes_total", Help: "Finished target scrapes."},
		[]string{"mode", "outcome"}, // outcome: ok|captcha|timeout|error
	)
	ReviewsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "reviews_extracted_total", Help: "Review cards extracted."},
	)
	PagesScraped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "pages_scraped_total", Help: "Listing pages parsed."},
	)
	Terminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "terminations_total", Help: "Pagination terminations by reason."},
		[]string{"reason"},
	)
	Challenges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "challenges_total", Help: "Verification pages encountered."},
		[]string{"mode"},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, Scrapes, ReviewsExtracted, PagesScraped, Terminations, Challenges)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve 在 addr 上单独暴露 /metrics，addr 为空时不启动，ctx 结束时关闭
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveScrape 记录一个目标的抓取结果
func ObserveScrape(mode, outcome, reason string, pages, reviews int) {
	Scrapes.WithLabelValues(mode, outcome).Inc()
	if reason != "" {
		Terminations.WithLabelValues(reason).Inc()
	}
	PagesScraped.Add(float64(pages))
	ReviewsExtracted.Add(float64(reviews))
}

func ObserveChallenge(mode string) {
	Challenges.WithLabelValues(mode).Inc()
}
