package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/atinyakov/cardkeeper/internal/middleware"
	"github.com/atinyakov/cardkeeper/internal/render"
)

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	// UploadDir is served under /static/uploads/.
	UploadDir string
	// CORSOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSOrigins []string
	// RateLimit caps card creations per client IP per minute. Zero disables it.
	RateLimit int
	// RequestTimeout bounds every request. Zero means 60 seconds.
	RequestTimeout time.Duration
}

// NewRouter constructs and returns the HTTP handler of the card service.
//
// Routes:
//
//	GET  /                        → cards.Index
//	GET  /create_card             → cards.CreateForm
//	POST /create_card             → cards.Create (rate limited per IP)
//	GET  /card/{id}               → cards.View
//	GET  /preview_card/{id}       → cards.Preview
//	GET  /download_vcard/{id}     → cards.DownloadVCard
//	GET  /download_package/{id}   → cards.DownloadPackage
//	GET  /static/js/*             → embedded scripts
//	GET  /static/uploads/*        → uploaded assets
//
// Middleware chain (applied in order): RequestID, RealIP,
// WithRequestLogging(logger), Recoverer, Timeout and, when origins are
// configured, CORS.
func NewRouter(cards *CardHandler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(timeout))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
			MaxAge:         300,
		}))
	}

	r.Get("/", cards.Index)

	r.Route("/create_card", func(r chi.Router) {
		r.Get("/", cards.CreateForm)
		r.Group(func(r chi.Router) {
			if cfg.RateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
			}
			r.Post("/", cards.Create)
		})
	})

	r.Get("/card/{id}", cards.View)
	r.Get("/preview_card/{id}", cards.Preview)
	r.Get("/download_vcard/{id}", cards.DownloadVCard)
	r.Get("/download_package/{id}", cards.DownloadPackage)

	r.Handle("/static/js/*", noDirListing(http.FileServerFS(render.StaticFS)))
	r.Handle("/static/uploads/*", http.StripPrefix("/static/uploads/", noDirListing(http.FileServer(http.Dir(cfg.UploadDir)))))

	return r
}

// noDirListing answers directory requests with 404 instead of an index.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
