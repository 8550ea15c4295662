package payment_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	gatewaytypes "github.com/frahmantamala/venue-management/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/payment"
	"github.com/frahmantamala/venue-management/internal/paymentgateway"
	"github.com/frahmantamala/venue-management/internal/staff"
)

var _ = Describe("HTTP handlers", func() {
	var (
		repo   *mockRepository
		router chi.Router
		now    time.Time
	)

	BeforeEach(func() {
		now = time.Now().UTC()
		acct := "acct_live"
		repo = &mockRepository{
			venues: map[string]*payment.VenueAccount{
				venueID: {VenueID: venueID, Currency: "USD", AccountID: &acct, State: payment.AccountState{Status: payment.StatusPending}, PreauthAmountCents: 5000},
			},
			events: map[string]payment.WebhookRecord{},
		}

		// The service itself knows no roles; only the route guard does.
		svc := payment.NewService(repo, &mockGateway{}, &mockRoles{roles: map[string]staff.Role{}}, payment.Options{WebhookSecret: secret}, testLogger)
		guard := staff.NewRBACAuthorization(&mockRoles{roles: map[string]staff.Role{"owner": staff.RoleOwner, "manager": staff.RoleManager}}, testLogger)
		h := payment.NewHandler(svc)
		webhook := payment.NewWebhookHandler(svc, testLogger)

		router = chi.NewRouter()
		router.Post("/api/v1/payments/webhook", webhook.HandleWebhook)
		router.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					if user := req.Header.Get("X-Test-User"); user != "" {
						req = req.WithContext(internal.ContextWithIdentity(req.Context(), &internal.Identity{UserID: user}))
					}
					next.ServeHTTP(w, req)
				})
			})
			r.Route("/api/v1/venues/{venueId}/payments", func(r chi.Router) {
				r.Use(guard.RequireVenueOperation(staff.OpManagePayments))
				r.Put("/preauth", h.UpdatePreauthAmount)
				r.Get("/account", h.AccountStatus)
			})
		})
	})

	do := func(method, path, user, body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	Describe("owner-only routes", func() {
		It("lets owners through using the role resolved by the guard", func() {
			rec := do(http.MethodPut, "/api/v1/venues/"+venueID+"/payments/preauth", "owner", `{"amount_cents": 2500}`, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(repo.venues[venueID].PreauthAmountCents).To(Equal(int64(2500)))
		})

		It("rejects managers", func() {
			rec := do(http.MethodPut, "/api/v1/venues/"+venueID+"/payments/preauth", "manager", `{"amount_cents": 2500}`, nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(rec)).To(Equal("ACCESS_DENIED"))
		})

		It("rejects anonymous callers", func() {
			rec := do(http.MethodGet, "/api/v1/venues/"+venueID+"/payments/account", "", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("treats malformed venue ids as no access", func() {
			rec := do(http.MethodGet, "/api/v1/venues/not-a-uuid/payments/account", "owner", "", nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("validates the amount", func() {
			rec := do(http.MethodPut, "/api/v1/venues/"+venueID+"/payments/preauth", "owner", `{"amount_cents": 5}`, nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal("VALIDATION_FAILED"))
		})
	})

	Describe("webhook", func() {
		It("acknowledges a signed event", func() {
			payload := accountUpdated("evt_http", "acct_live", gatewaytypes.Account{ChargesEnabled: true, PayoutsEnabled: true})
			rec := do(http.MethodPost, "/api/v1/payments/webhook", "", string(payload), map[string]string{
				paymentgateway.SignatureHeader: paymentgateway.Sign(payload, secret, now),
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"received":true`))
			Expect(repo.venues[venueID].State.Status).To(Equal(payment.StatusComplete))
		})

		It("returns 400 for an unsigned event", func() {
			payload := accountUpdated("evt_http", "acct_live", gatewaytypes.Account{})
			rec := do(http.MethodPost, "/api/v1/payments/webhook", "", string(payload), nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal("INVALID_SIGNATURE"))
		})
	})
})
