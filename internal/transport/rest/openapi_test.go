package rest

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal/auth"
	"github.com/frahmantamala/venue-management/internal/invitation"
	"github.com/frahmantamala/venue-management/internal/payment"
	"github.com/frahmantamala/venue-management/internal/staff"
	"github.com/frahmantamala/venue-management/internal/user"
	"github.com/frahmantamala/venue-management/internal/venue"
)

const openAPIFile = "../../../api/openapi.yml"

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		var err error
		doc, err = openapi3.NewLoader().LoadFromFile(openAPIFile)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid OpenAPI 3 document", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every API route the router mounts", func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router := chi.NewRouter()
		RegisterAllRoutes(router, Dependencies{
			Auth:       auth.NewHandler(stubAuth{}),
			User:       user.NewHandler(nil, nil),
			Venue:      venue.NewHandler(&stubVenues{}),
			Staff:      staff.NewHandler(nil),
			Invitation: invitation.NewHandler(nil),
			Payment:    payment.NewHandler(nil),
			Webhook:    payment.NewWebhookHandler(nil, logger),
			RBAC:       staff.NewRBACAuthorization(nil, logger),
		}, logger)

		var undocumented []string
		err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, "/api/v1/") {
				return nil
			}
			path := strings.TrimPrefix(route, "/api/v1")
			if len(path) > 1 {
				path = strings.TrimSuffix(path, "/")
			}
			item := doc.Paths.Find(path)
			if item == nil || item.GetOperation(method) == nil {
				undocumented = append(undocumented, method+" "+route)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(undocumented).To(BeEmpty())
	})
})
