package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"gitea.jw6.us/james/notioncal/internal/auth"
	"gitea.jw6.us/james/notioncal/internal/config"
	"gitea.jw6.us/james/notioncal/internal/http/ratelimit"
	"gitea.jw6.us/james/notioncal/internal/metrics"
	"gitea.jw6.us/james/notioncal/internal/web"
)

// NewRouter wires the feed, health and metrics routes. The returned func
// releases the feed rate limiter and must be called once the router is no
// longer serving.
func NewRouter(cfg *config.Config, source web.RecordSource, guard *auth.FeedGuard) (http.Handler, func()) {
	r := chi.NewRouter()

	// Feed endpoint: 1 request per second, burst of 10. Every request fans
	// out to at least two Notion API calls.
	feedRateLimiter := ratelimit.New(rate.Limit(1), 10, 10*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	feedHandler := web.NewHandler(cfg, source)

	r.Group(func(r chi.Router) {
		r.Use(feedRateLimiter.Middleware())
		r.Use(guard.Require)
		r.Get("/", feedHandler.Feed)
		r.Get("/calendar.ics", feedHandler.Feed)
	})

	return r, feedRateLimiter.Close
}
