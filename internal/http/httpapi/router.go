package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"inkwell/internal/http/handlers"
	"inkwell/internal/identity"
	"inkwell/internal/infra"
	"inkwell/internal/infra/geoip"
	"inkwell/internal/middleware"
)

// RouterOptions carries the cross-cutting dependencies the router wires in
// front of the handlers.
type RouterOptions struct {
	Logger    infra.Logger
	Verifier  identity.TokenVerifier
	Ledger    identity.UsageLedger
	Countries geoip.CountryResolver

	AllowedOrigins  []string
	RateLimitPerMin int
}

// NewRouter assembles the HTTP surface. Health and metrics are public;
// everything under /api requires a verified session.
func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger, opts.Countries),
	)
	if app.Metrics != nil {
		r.Use(app.Metrics.Middleware)
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Get("/healthz", app.Health)
	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(opts.Verifier, opts.Ledger, opts.Logger))

		r.Route("/ai", func(r chi.Router) {
			r.Post("/generate-article", app.GenerateArticle)
			r.Post("/generate-blog-title", app.GenerateBlogTitle)
			r.Post("/generate-image", app.GenerateImage)
			r.Post("/remove-image-background", app.RemoveImageBackground)
			r.Post("/remove-image-object", app.RemoveImageObject)
			r.Post("/resume-review", app.ResumeReview)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/get-user-creations", app.GetUserCreations)
			r.Get("/get-published-creations", app.GetPublishedCreations)
		})
	})

	return r
}
