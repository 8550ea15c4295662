package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/auth"
)

type stubService struct {
	auth.ServiceAPI
	identity *internal.Identity
	resetErr error
}

func (s *stubService) ResolveIdentity(ctx context.Context, tok string) (*internal.Identity, error) {
	if tok != "good" {
		return nil, internal.ErrUnauthenticated
	}
	return s.identity, nil
}

func (s *stubService) ResetPassword(ctx context.Context, dto auth.PasswordResetDTO) error {
	return s.resetErr
}

var _ = Describe("Handler", func() {
	var (
		svc *stubService
		h   *auth.Handler
	)

	BeforeEach(func() {
		svc = &stubService{identity: &internal.Identity{UserID: "user-1", Email: "a@example.com"}}
		h = auth.NewHandler(svc)
	})

	Describe("AuthMiddleware", func() {
		var next http.Handler

		BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := internal.IdentityFromContext(r.Context())
				Expect(ok).To(BeTrue())
				w.Write([]byte(id.UserID))
			})
		})

		It("stores the resolved identity on the context", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()

			h.AuthMiddleware(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("user-1"))
		})

		It("rejects anonymous requests with UNAUTHENTICATED", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil)
			rec := httptest.NewRecorder()

			h.AuthMiddleware(next).ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			var body map[string]map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]["code"]).To(Equal("UNAUTHENTICATED"))
		})
	})

	Describe("ResetPassword", func() {
		It("maps the generic token error to 400", func() {
			svc.resetErr = internal.ErrInvalidOrExpiredToken
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset/confirm",
				strings.NewReader(`{"token":"t","new_password":"password123"}`))
			rec := httptest.NewRecorder()

			h.ResetPassword(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("INVALID_OR_EXPIRED_TOKEN"))
		})

		It("rejects unknown fields", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset/confirm",
				strings.NewReader(`{"token":"t","password":"x"}`))
			rec := httptest.NewRecorder()

			h.ResetPassword(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
