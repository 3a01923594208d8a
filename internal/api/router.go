package api

import (
	"net/http"
	"strings"

	"github.com/dom/institutional-site/internal/api/handlers"
	"github.com/dom/institutional-site/internal/api/middleware"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Services *service.Services
	Config   *config.Config
	Log      logrus.FieldLogger
	// UploadDir is served under Config.UploadURLPrefix when images live on local disk.
	UploadDir string
	// Registry collects metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	services := deps.Services

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := middleware.NewMetrics("institutional_site", registry)
	gate := middleware.NewGate(services.Auth, metrics)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(metrics.Instrument)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if deps.UploadDir != "" {
		prefix := "/" + strings.Trim(cfg.UploadURLPrefix, "/")
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(deps.UploadDir)))
		r.Handle(prefix+"/*", files)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	profileHandler := handlers.NewProfileHandler(services.Auth)
	testimonialHandler := handlers.NewTestimonialHandler(services.Testimonial)
	dateHandler := handlers.NewCommemorativeDateHandler(services.CommemorativeDate)
	timelineHandler := handlers.NewTimelineHandler(services.Timeline)
	contactHandler := handlers.NewContactHandler(services.Contact)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Handlers that still respond after the deadline (forgot-password swallows
		// mail errors) race the middleware's own 504; net/http logs the second
		// WriteHeader as superfluous.
		r.Use(chiMiddleware.Timeout(cfg.UpstreamTimeout))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.With(gate.RequireAuth).Post("/change-password", authHandler.ChangePassword)
			r.With(gate.RequireAdmin).Post("/register", authHandler.Register)
		})

		r.With(gate.RequireAuth).Get("/users/me", profileHandler.GetProfile)

		r.Route("/testimonials", func(r chi.Router) {
			r.Get("/", testimonialHandler.List)
			r.Get("/{id}", testimonialHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAdmin)
				r.Post("/", testimonialHandler.Create)
				r.Put("/{id}", testimonialHandler.Update)
				r.Delete("/{id}", testimonialHandler.Delete)
			})
		})

		r.Route("/commemorative-dates", func(r chi.Router) {
			r.Get("/", dateHandler.List)
			r.Get("/{id}", dateHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAdminOrEmployee)
				r.Post("/", dateHandler.Create)
				r.Put("/{id}", dateHandler.Update)
				r.Delete("/{id}", dateHandler.Delete)
			})
		})

		r.Route("/timeline-posts", func(r chi.Router) {
			r.Get("/", timelineHandler.List)
			r.Get("/{id}", timelineHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAdmin)
				r.Post("/", timelineHandler.Create)
				r.Put("/{id}", timelineHandler.Update)
				r.Delete("/{id}", timelineHandler.Delete)
			})
		})

		r.Post("/contact", contactHandler.Send)
	})

	return r
}
