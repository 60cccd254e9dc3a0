package routes

import (
	_ "embed"
	"net/http"

	"github.com/Sovan7777/spardha-26/handlers"
	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/Sovan7777/spardha-26/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDoc []byte

const swaggerDocPath = "/swagger/doc.json"

// Handlers собирает все обработчики, которые монтирует SetupRoutes.
type Handlers struct {
	Team   *handlers.TeamHandler
	Admin  *handlers.AdminHandler
	Report *handlers.ReportHandler
	Feed   *handlers.FeedHandler
	Health *handlers.HealthHandler
	Pages  *handlers.Pages
}

type Options struct {
	AllowedOrigins []string
	Verifier       middleware.TokenVerifier
	Metrics        *metrics.Collectors
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: allowCredentials(opts.AllowedOrigins),
		MaxAge:           300,
	}))

	router.Get("/healthz", h.Health.Health)
	if opts.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	router.Get(swaggerDocPath, serveOpenAPI)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerDocPath)))

	// Страницы
	router.Get(middleware.LoginPath, h.Pages.Login)
	router.With(middleware.RequireAdminPage(opts.Verifier)).Get("/report", h.Report.Page)

	router.Route("/api", func(r chi.Router) {
		r.Route("/teams", func(r chi.Router) {
			r.Post("/", h.Team.RegisterTeam)
			r.Post("/status", h.Team.CheckStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.Admin.Login)
			r.Post("/logout", h.Admin.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(opts.Verifier))

				r.Get("/teams", h.Team.ListTeams)
				r.Get("/teams/{teamID}", h.Team.GetTeam)
				r.Patch("/teams/{teamID}/status", h.Team.UpdateStatus)

				r.Get("/report", h.Report.Summary)
				r.Get("/report.xlsx", h.Report.ExportXLSX)
				r.Get("/feed", h.Feed.ServeWs)
			})
		})
	})
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDoc)
}

// allowCredentials включает cookie-запросы только для явного списка origin.
// С "*" go-chi/cors отражал бы любой Origin вместе с credentials.
func allowCredentials(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if o == "*" {
			return false
		}
	}
	return true
}
