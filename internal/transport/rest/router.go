package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/venue-management/internal/auth"
	"github.com/frahmantamala/venue-management/internal/invitation"
	"github.com/frahmantamala/venue-management/internal/payment"
	"github.com/frahmantamala/venue-management/internal/staff"
	"github.com/frahmantamala/venue-management/internal/transport/middleware"
	"github.com/frahmantamala/venue-management/internal/transport/swagger"
	"github.com/frahmantamala/venue-management/internal/user"
	"github.com/frahmantamala/venue-management/internal/venue"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies carries everything the router mounts. Nil handlers leave
// their routes unregistered.
type Dependencies struct {
	DB         *sqlx.DB
	Auth       *auth.Handler
	User       *user.Handler
	Venue      *venue.Handler
	Staff      *staff.Handler
	Invitation *invitation.Handler
	Payment    *payment.Handler
	Webhook    *payment.WebhookHandler
	RBAC       *staff.RBACAuthorization

	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	// Tracing wraps the whole router when set.
	Tracing func(http.Handler) http.Handler

	AllowedOrigins          []string
	PublicRequestsPerMinute int
	MetricsPath             string
	OpenAPIPath             string
	RequestTimeout          time.Duration
}

func NewRouter(deps Dependencies, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	RegisterAllRoutes(router, deps, logger)
	if deps.Tracing != nil {
		return deps.Tracing(router)
	}
	return router
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies, logger *slog.Logger) {
	healthHandler := NewHealthHandler(deps.DB)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TraceIDHeader},
		ExposedHeaders:   []string{middleware.TraceIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	if deps.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(deps.RequestTimeout))
	}

	if deps.Gatherer != nil {
		metricsPath := deps.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.Handle(metricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	openAPIPath := deps.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	perMinute := deps.PublicRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	publicLimit := httprate.LimitByIP(perMinute, time.Minute)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", healthHandler.pingHandler)
		r.Get("/health", healthHandler.healthCheckHandler)

		if deps.Webhook != nil {
			r.Post("/payments/webhook", deps.Webhook.HandleWebhook)
		}

		if deps.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				ar.Use(publicLimit)
				ar.Post("/register", deps.Auth.Register)
				ar.Post("/login", deps.Auth.Login)
				ar.Post("/refresh", deps.Auth.RefreshToken)
				ar.Post("/password-reset", deps.Auth.RequestPasswordReset)
				ar.Post("/password-reset/confirm", deps.Auth.ResetPassword)
			})
		}

		if deps.Invitation != nil {
			r.Route("/invitations", func(ir chi.Router) {
				ir.Use(publicLimit)
				ir.Post("/accept", deps.Invitation.Accept)
				ir.Get("/{token}", deps.Invitation.Preview)
			})
		}

		if deps.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(deps.Auth.AuthMiddleware)

			if deps.User != nil {
				pr.Get("/users/me", deps.User.GetCurrentUser)
			}

			pr.Route("/venues", func(vr chi.Router) {
				if deps.Venue != nil {
					vr.Post("/", deps.Venue.Create)
					vr.Get("/", deps.Venue.List)
					vr.Get("/{venueId}", deps.Venue.Get)
				}

				if deps.Staff != nil {
					vr.Get("/{venueId}/staff", deps.Staff.ListStaff)
					vr.Post("/{venueId}/invitations", deps.Staff.InviteStaff)
				}

				if deps.Payment != nil && deps.RBAC != nil {
					vr.Route("/{venueId}/payments", func(pmr chi.Router) {
						pmr.Use(deps.RBAC.RequireVenueOperation(staff.OpManagePayments))
						pmr.Post("/account", deps.Payment.ConnectAccount)
						pmr.Get("/account", deps.Payment.AccountStatus)
						pmr.Post("/onboarding-link", deps.Payment.OnboardingLink)
						pmr.Put("/preauth", deps.Payment.UpdatePreauthAmount)
					})
				}
			})

			if deps.Staff != nil {
				pr.Route("/staff/{staffId}", func(sr chi.Router) {
					sr.Patch("/role", deps.Staff.UpdateStaffRole)
					sr.Delete("/", deps.Staff.DeactivateStaff)
				})
			}
		})
	})
}
