package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	paymentDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/payment"
	venueDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/venue"
	"github.com/frahmantamala/venue-management/internal/payment"
)

func TestPaymentRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Repository Suite")
}

var _ = Describe("PaymentRepository", func() {
	const venueID = "venue-1"

	var (
		ctx  context.Context
		db   *gorm.DB
		repo *PaymentRepository
		now  time.Time
	)

	record := func(eventID, accountID string) payment.WebhookRecord {
		return payment.WebhookRecord{
			EventID:     eventID,
			Type:        "account.updated",
			AccountID:   accountID,
			Payload:     datatypes.JSON(`{"id":"` + eventID + `"}`),
			ProcessedAt: now,
		}
	}

	complete := payment.AccountState{Status: payment.StatusComplete, ChargesEnabled: true, PayoutsEnabled: true}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&venueDatamodel.Venue{}, &paymentDatamodel.WebhookEvent{})).To(Succeed())

		repo = NewPaymentRepository(db)
		now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		Expect(db.Create(&venueDatamodel.Venue{
			ID: venueID, Name: "Alpha Cafe", Slug: "alpha-cafe", Timezone: "UTC", Currency: "USD",
			PaymentOnboardingStatus: string(payment.StatusNotStarted), PreauthAmountCents: 5000, CreatedAt: now, UpdatedAt: now,
		}).Error).To(Succeed())
	})

	It("loads the payment view of a venue", func() {
		v, err := repo.GetVenueAccount(ctx, venueID)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.HasAccount()).To(BeFalse())
		Expect(v.State.Status).To(Equal(payment.StatusNotStarted))
		Expect(v.PreauthAmountCents).To(Equal(int64(5000)))

		_, err = repo.GetVenueAccount(ctx, "missing")
		Expect(errors.Is(err, payment.ErrVenueNotFound)).To(BeTrue())
	})

	Describe("AttachAccount", func() {
		It("links once and marks the venue pending", func() {
			Expect(repo.AttachAccount(ctx, venueID, "acct_1", now)).To(Succeed())

			v, err := repo.GetVenueAccount(ctx, venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*v.AccountID).To(Equal("acct_1"))
			Expect(v.State.Status).To(Equal(payment.StatusPending))

			err = repo.AttachAccount(ctx, venueID, "acct_2", now)
			Expect(errors.Is(err, payment.ErrAccountAlreadyAttached)).To(BeTrue())
		})

		It("reports unknown venues", func() {
			err := repo.AttachAccount(ctx, "missing", "acct_1", now)
			Expect(errors.Is(err, payment.ErrVenueNotFound)).To(BeTrue())
		})
	})

	Describe("RecordAccountUpdate", func() {
		BeforeEach(func() {
			Expect(repo.AttachAccount(ctx, venueID, "acct_1", now)).To(Succeed())
		})

		It("applies the state and reports the transition", func() {
			change, err := repo.RecordAccountUpdate(ctx, record("evt_1", "acct_1"), complete)
			Expect(err).NotTo(HaveOccurred())
			Expect(change).To(Equal(&payment.AccountChange{VenueID: venueID, OldStatus: payment.StatusPending, NewStatus: payment.StatusComplete}))

			v, err := repo.GetVenueAccount(ctx, venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.State).To(Equal(complete))
		})

		It("ignores a replayed event id", func() {
			_, err := repo.RecordAccountUpdate(ctx, record("evt_1", "acct_1"), complete)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.RecordAccountUpdate(ctx, record("evt_1", "acct_1"), payment.AccountState{Status: payment.StatusRestricted})
			Expect(errors.Is(err, payment.ErrEventAlreadyProcessed)).To(BeTrue())

			v, err := repo.GetVenueAccount(ctx, venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.State.Status).To(Equal(payment.StatusComplete))
		})

		It("records events for unknown accounts without touching venues", func() {
			change, err := repo.RecordAccountUpdate(ctx, record("evt_2", "acct_other"), complete)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.VenueID).To(BeEmpty())

			var count int64
			Expect(db.Model(&paymentDatamodel.WebhookEvent{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})
	})

	It("records other events idempotently", func() {
		Expect(repo.RecordEvent(ctx, record("evt_9", ""))).To(Succeed())
		Expect(errors.Is(repo.RecordEvent(ctx, record("evt_9", "")), payment.ErrEventAlreadyProcessed)).To(BeTrue())
	})

	It("updates the pre-authorization amount", func() {
		Expect(repo.UpdatePreauthAmount(ctx, venueID, 2500, now)).To(Succeed())
		v, err := repo.GetVenueAccount(ctx, venueID)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.PreauthAmountCents).To(Equal(int64(2500)))

		Expect(errors.Is(repo.UpdatePreauthAmount(ctx, "missing", 2500, now), payment.ErrVenueNotFound)).To(BeTrue())
	})
})
