package venue_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/staff"
	"github.com/frahmantamala/venue-management/internal/venue"
)

type mockRepository struct {
	venues     map[string]*venue.Venue
	owners     map[string]*staff.Assignment
	takenSlugs map[string]bool
	raceSlug   bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		venues:     map[string]*venue.Venue{},
		owners:     map[string]*staff.Assignment{},
		takenSlugs: map[string]bool{},
	}
}

func (m *mockRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return m.takenSlugs[slug], nil
}

func (m *mockRepository) CreateWithOwner(ctx context.Context, v *venue.Venue, owner *staff.Assignment) error {
	if m.raceSlug || m.takenSlugs[v.Slug] {
		return venue.ErrSlugTaken
	}
	m.takenSlugs[v.Slug] = true
	m.venues[v.ID] = v
	m.owners[v.ID] = owner
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*venue.Venue, error) {
	v, ok := m.venues[id]
	if !ok {
		return nil, venue.ErrNotFound
	}
	return v, nil
}

func (m *mockRepository) ListAccessible(ctx context.Context, userID string) ([]venue.Summary, error) {
	return nil, nil
}

type mockRoles struct {
	roles map[string]staff.Role // venueID/userID
}

func (m *mockRoles) CallerRole(ctx context.Context, venueID, userID string) (staff.Role, error) {
	return m.roles[venueID+"/"+userID], nil
}

var _ = Describe("Service", func() {
	var (
		repo  *mockRepository
		roles *mockRoles
		svc   *venue.Service
		ctx   context.Context
		dto   venue.CreateVenueDTO
	)

	BeforeEach(func() {
		repo = newMockRepository()
		roles = &mockRoles{roles: map[string]staff.Role{}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = venue.NewService(repo, roles, nil, logger)
		ctx = internal.ContextWithIdentity(context.Background(), &internal.Identity{UserID: "u-1", Email: "owner@example.com"})
		dto = venue.CreateVenueDTO{Name: "Alpha Cafe", Timezone: "America/New_York", Currency: "usd"}
	})

	Describe("Create", func() {
		It("creates the venue with defaults and the caller as owner", func() {
			resp, err := svc.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Slug).To(Equal("alpha-cafe"))

			v := repo.venues[resp.VenueID]
			Expect(v.Currency).To(Equal("USD"))
			Expect(v.PaymentOnboardingStatus).To(Equal("not_started"))
			Expect(v.PreauthAmountCents).To(Equal(int64(venue.DefaultPreauthAmountCents)))

			owner := repo.owners[resp.VenueID]
			Expect(owner.UserID).To(Equal("u-1"))
			Expect(owner.State).To(Equal(staff.Active{Role: staff.RoleOwner}))
		})

		It("suffixes the slug on collision", func() {
			dto.Name = "Collision Place"
			first, err := svc.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Slug).To(Equal("collision-place"))
			Expect(second.Slug).To(Equal("collision-place-2"))
		})

		It("gives up after ten candidates", func() {
			repo.takenSlugs["busy"] = true
			for n := 2; n <= venue.MaxSlugAttempts; n++ {
				repo.takenSlugs[fmt.Sprintf("busy-%d", n)] = true
			}
			dto.Name = "Busy"
			_, err := svc.Create(ctx, dto)
			Expect(errors.Is(err, internal.ErrSlugExhausted)).To(BeTrue())
		})

		It("maps a concurrent slug insert to SlugConflict", func() {
			repo.raceSlug = true
			_, err := svc.Create(ctx, dto)
			Expect(errors.Is(err, internal.ErrSlugConflict)).To(BeTrue())
		})

		It("requires authentication", func() {
			_, err := svc.Create(context.Background(), dto)
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*venue.CreateVenueDTO)) {
				mutate(&dto)
				_, err := svc.Create(ctx, dto)
				Expect(internal.ErrorCodeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
				Expect(repo.venues).To(BeEmpty())
			},
			Entry("short name", func(d *venue.CreateVenueDTO) { d.Name = "A" }),
			Entry("unknown timezone", func(d *venue.CreateVenueDTO) { d.Timezone = "Mars/Olympus" }),
			Entry("bad currency", func(d *venue.CreateVenueDTO) { d.Currency = "US" }),
			Entry("numeric currency", func(d *venue.CreateVenueDTO) { d.Currency = "U5D" }),
		)
	})

	Describe("GetByID", func() {
		var venueID string

		BeforeEach(func() {
			resp, err := svc.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			venueID = resp.VenueID
		})

		It("returns the venue with the caller's role", func() {
			roles.roles[venueID+"/u-1"] = staff.RoleOwner
			detail, err := svc.GetByID(ctx, venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Name).To(Equal("Alpha Cafe"))
			Expect(detail.Role).To(Equal(staff.RoleOwner))
		})

		It("denies non-members the same way for unknown and existing venues", func() {
			_, missing := svc.GetByID(ctx, "missing")
			_, existing := svc.GetByID(ctx, venueID)
			Expect(missing).To(Equal(internal.ErrNoVenueAccess))
			Expect(existing).To(Equal(internal.ErrNoVenueAccess))
		})

		It("reports a missing venue to a caller holding a role for it", func() {
			roles.roles["missing/u-1"] = staff.RoleOwner
			_, err := svc.GetByID(ctx, "missing")
			Expect(errors.Is(err, internal.ErrVenueNotFound)).To(BeTrue())
		})

		It("denies callers without an active assignment", func() {
			_, err := svc.GetByID(ctx, venueID)
			Expect(errors.Is(err, internal.ErrNoVenueAccess)).To(BeTrue())
		})
	})

	It("lists an empty slice rather than null", func() {
		resp, err := svc.ListAccessible(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Venues).NotTo(BeNil())
		Expect(resp.Venues).To(BeEmpty())
	})
})
