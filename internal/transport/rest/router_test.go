package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/auth"
	"github.com/frahmantamala/venue-management/internal/transport/middleware"
	"github.com/frahmantamala/venue-management/internal/venue"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Suite")
}

type stubAuth struct{}

func (stubAuth) Register(ctx context.Context, dto auth.RegisterDTO) (*auth.RegisterResponse, error) {
	return &auth.RegisterResponse{UserID: "u-new"}, nil
}

func (stubAuth) Authenticate(ctx context.Context, dto auth.LoginDTO) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, internal.ErrInvalidCredentials
}

func (stubAuth) RefreshTokens(ctx context.Context, refreshToken string) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, internal.ErrUnauthenticated
}

func (stubAuth) RequestPasswordReset(ctx context.Context, dto auth.PasswordResetRequestDTO) error {
	return nil
}

func (stubAuth) ResetPassword(ctx context.Context, dto auth.PasswordResetDTO) error {
	return nil
}

func (stubAuth) ResolveIdentity(ctx context.Context, accessToken string) (*internal.Identity, error) {
	if accessToken != "good-token" {
		return nil, internal.ErrUnauthenticated
	}
	return &internal.Identity{UserID: "u-1", Email: "owner@example.com"}, nil
}

type stubVenues struct {
	calls int
}

func (s *stubVenues) Create(ctx context.Context, dto venue.CreateVenueDTO) (*venue.CreateResponse, error) {
	s.calls++
	return nil, internal.ErrUnauthenticated
}

func (s *stubVenues) ListAccessible(ctx context.Context) (*venue.ListResponse, error) {
	s.calls++
	if internal.UserIDFromContext(ctx) != "u-1" {
		return nil, internal.ErrUnauthenticated
	}
	return &venue.ListResponse{Venues: []venue.Summary{}}, nil
}

func (s *stubVenues) GetByID(ctx context.Context, venueID string) (*venue.Detail, error) {
	s.calls++
	return nil, internal.ErrVenueNotFound
}

var _ = Describe("Router", func() {
	var (
		db      *sqlx.DB
		venues  *stubVenues
		reg     *prometheus.Registry
		handler http.Handler
	)

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(""))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		var err error
		db, err = sqlx.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())

		reg = prometheus.NewRegistry()
		metrics, err := middleware.NewHTTPMetrics(reg)
		Expect(err).NotTo(HaveOccurred())

		venues = &stubVenues{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = NewRouter(Dependencies{
			DB:             db,
			Auth:           auth.NewHandler(stubAuth{}),
			Venue:          venue.NewHandler(venues),
			Metrics:        metrics,
			Gatherer:       reg,
			AllowedOrigins: []string{"*"},
			OpenAPIPath:    "../../../api/openapi.yml",
		}, logger)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("answers liveness and readiness", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "").Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var body HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Components["postgres"].Status).To(Equal(HealthHealthy))
	})

	It("reports an unhealthy database", func() {
		Expect(db.Close()).To(Succeed())
		rec := do(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		db, _ = sqlx.Open("sqlite3", ":memory:")
	})

	It("rejects anonymous calls before reaching the service", func() {
		rec := do(http.MethodGet, "/api/v1/venues", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring("UNAUTHENTICATED"))
		Expect(venues.calls).To(BeZero())

		Expect(do(http.MethodGet, "/api/v1/venues", "bad").Code).To(Equal(http.StatusUnauthorized))
		Expect(venues.calls).To(BeZero())
	})

	It("passes the resolved identity to the service", func() {
		rec := do(http.MethodGet, "/api/v1/venues", "good-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(middleware.TraceIDHeader)).NotTo(BeEmpty())
	})

	It("keeps the password reset request public", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset",
			strings.NewReader(`{"email":"nobody@example.com"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusAccepted))
	})

	It("exposes metrics and the OpenAPI document", func() {
		do(http.MethodGet, "/api/v1/ping", "")

		rec := do(http.MethodGet, "/metrics", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`venue_http_requests_total{method="GET",route="/api/v1/ping",status="200"} 1`))

		rec = do(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("openapi: 3"))
	})
})
