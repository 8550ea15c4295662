package payment_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/internal/payment"
	"github.com/frahmantamala/venue-management/internal/staff"
)

type mockOwners struct {
	emails     []string
	shouldFail bool
}

func (m *mockOwners) ListActiveEmailsByRole(ctx context.Context, venueID string, role staff.Role) ([]string, error) {
	if m.shouldFail {
		return nil, errors.New("database down")
	}
	Expect(role).To(Equal(staff.RoleOwner))
	return m.emails, nil
}

type mockVenueNames struct{}

func (mockVenueNames) VenueName(ctx context.Context, venueID string) (string, error) {
	return "Alpha Cafe", nil
}

type mockEnqueuer struct {
	messages []notification.Message
	full     bool
}

func (m *mockEnqueuer) Enqueue(msg notification.Message) error {
	if m.full {
		return notification.ErrQueueFull
	}
	m.messages = append(m.messages, msg)
	return nil
}

var _ = Describe("EventHandler", func() {
	var (
		owners   *mockOwners
		enqueuer *mockEnqueuer
		handler  *payment.EventHandler
		event    *events.PaymentAccountUpdatedEvent
	)

	BeforeEach(func() {
		owners = &mockOwners{emails: []string{"a@example.com", "b@example.com"}}
		enqueuer = &mockEnqueuer{}
		handler = payment.NewEventHandler(owners, mockVenueNames{}, enqueuer, testLogger)
		event = events.NewPaymentAccountUpdatedEvent(venueID, "acct_live", "pending", "complete")
	})

	It("queues one status message per active owner", func() {
		Expect(handler.HandleAccountUpdated(context.Background(), event)).To(Succeed())
		Expect(enqueuer.messages).To(HaveLen(2))
		Expect(enqueuer.messages[0].Kind).To(Equal(notification.KindPaymentAccountStatus))
		Expect(enqueuer.messages[0].Payload).To(Equal(map[string]string{"venue_name": "Alpha Cafe", "status": "complete"}))
		Expect(enqueuer.messages[1].To).To(Equal("b@example.com"))
	})

	It("swallows lookup and queue failures", func() {
		enqueuer.full = true
		Expect(handler.HandleAccountUpdated(context.Background(), event)).To(Succeed())

		owners.shouldFail = true
		Expect(handler.HandleAccountUpdated(context.Background(), event)).To(Succeed())
	})

	It("rejects unrelated events", func() {
		other := events.NewUserRegisteredEvent("user-1")
		Expect(handler.HandleAccountUpdated(context.Background(), other)).NotTo(Succeed())
	})

	It("runs when subscribed to the bus", func() {
		bus := events.NewEventBus(testLogger)
		handler.RegisterEventHandlers(bus)
		Expect(bus.PublishSync(context.Background(), event)).To(Succeed())
		Expect(enqueuer.messages).To(HaveLen(2))
	})
})
