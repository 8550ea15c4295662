package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/venue-management/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (p *recordingPublisher) Publish(_ context.Context, subj string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.subjects = append(p.subjects, subj)
	return nil
}

func (p *recordingPublisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

var _ = Describe("EventBus", func() {
	var (
		bus    *events.EventBus
		logger *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
	})

	It("delivers asynchronously published events to every subscriber", func() {
		var mu sync.Mutex
		received := 0
		handler := func(ctx context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received++
			return nil
		}
		bus.Subscribe(events.EventTypeVenueCreated, handler)
		bus.Subscribe(events.EventTypeVenueCreated, handler)

		Expect(bus.Publish(context.Background(), events.NewVenueCreatedEvent("v1", "alpha-cafe", "u1"))).To(Succeed())
		Expect(bus.Drain(context.Background())).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(received).To(Equal(2))
	})

	It("keeps handlers running after the publishing context is cancelled", func() {
		done := make(chan error, 1)
		bus.Subscribe(events.EventTypeStaffInvited, func(ctx context.Context, e events.Event) error {
			time.Sleep(10 * time.Millisecond)
			done <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewStaffInvitedEvent("i1", "v1", "a@b.co", "SERVER", "u1"))).To(Succeed())
		cancel()

		Eventually(done).Should(Receive(BeNil()))
	})

	It("returns the first handler error from PublishSync", func() {
		bus.Subscribe(events.EventTypeStaffDeactivated, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewStaffDeactivatedEvent("s1", "v1", "u2", "u1"))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(context.Background(), events.NewUserRegisteredEvent("u1"))).To(Succeed())
		Expect(bus.PublishSync(context.Background(), events.NewUserRegisteredEvent("u1"))).To(Succeed())
	})

	Describe("subscribers", func() {
		It("counts events by type", func() {
			reg := prometheus.NewRegistry()
			counter, err := events.NewEventCounter(reg)
			Expect(err).NotTo(HaveOccurred())

			bus.SubscribeMany(events.AllEventTypes, counter.Handler())
			Expect(bus.PublishSync(context.Background(), events.NewPasswordResetEvent("u1"))).To(Succeed())
			Expect(bus.PublishSync(context.Background(), events.NewPasswordResetEvent("u2"))).To(Succeed())

			Expect(testutil.ToFloat64(counter.Collector().WithLabelValues(events.EventTypePasswordReset))).To(Equal(2.0))
		})

		It("forwards events under the configured subject prefix", func() {
			pub := &recordingPublisher{}
			fwd := events.NewForwarder(pub, "venue")
			bus.Subscribe(events.EventTypePaymentAccountUpdated, fwd.Handler())

			Expect(bus.PublishSync(context.Background(),
				events.NewPaymentAccountUpdatedEvent("v1", "acct_1", "pending", "complete"))).To(Succeed())
			Expect(pub.Subjects()).To(ConsistOf("venue.payment.account_updated"))
		})

		It("surfaces broker failures", func() {
			pub := &recordingPublisher{fail: true}
			bus.Subscribe(events.EventTypeVenueCreated, events.NewForwarder(pub, "").Handler())

			err := bus.PublishSync(context.Background(), events.NewVenueCreatedEvent("v1", "s", "u"))
			Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
		})
	})
})
