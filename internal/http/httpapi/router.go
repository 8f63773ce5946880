package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"clipforge/internal/http/handlers"
	"clipforge/internal/middleware"
)

// Options carries router-level knobs that come from configuration.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/api/healthz", app.Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", app.AuthRegister)
		r.Post("/login", app.AuthLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.JWTSecret))
			r.Get("/me", app.Me)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.JWTSecret))

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", app.ProjectsList)
			r.Post("/", app.ProjectsCreate)
			r.Get("/{id}", app.ProjectsGet)
			r.Put("/{id}", app.ProjectsUpdate)
			r.Delete("/{id}", app.ProjectsDelete)
		})

		r.Route("/api/videos", func(r chi.Router) {
			r.Post("/", app.VideosCreate)
			r.Get("/project/{projectID}", app.VideosByProject)
			r.Get("/{id}", app.VideosGet)
			r.Delete("/{id}", app.VideosDelete)
			r.Post("/{id}/process", app.VideosProcess)
			r.Get("/{id}/status", app.VideosStatus)
			r.Get("/{id}/export", app.VideosExport)
		})
	})

	return r
}
