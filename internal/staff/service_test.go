package staff_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	invitationDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/invitation"
	"github.com/frahmantamala/venue-management/internal/notification"
	"github.com/frahmantamala/venue-management/internal/staff"
)

type mockRepository struct {
	assignments map[string]*staff.Assignment
	emails      map[string]string // user id -> email
	shouldFail  bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		assignments: make(map[string]*staff.Assignment),
		emails:      make(map[string]string),
	}
}

func (m *mockRepository) add(id, userID, email, venueID string, role staff.Role) {
	m.assignments[id] = &staff.Assignment{ID: id, UserID: userID, VenueID: venueID, State: staff.Active{Role: role}, CreatedAt: time.Now()}
	m.emails[userID] = email
}

func (m *mockRepository) GetActiveByID(ctx context.Context, id string) (*staff.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok || !a.IsActive() {
		return nil, staff.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepository) GetActiveRole(ctx context.Context, venueID, userID string) (staff.Role, error) {
	if m.shouldFail {
		return "", errors.New("database down")
	}
	for _, a := range m.assignments {
		if a.VenueID == venueID && a.UserID == userID {
			if role, ok := a.ActiveRole(); ok {
				return role, nil
			}
		}
	}
	return "", staff.ErrNotFound
}

func (m *mockRepository) HasActiveAssignmentForEmail(ctx context.Context, venueID, email string) (bool, error) {
	for _, a := range m.assignments {
		if a.VenueID == venueID && a.IsActive() && m.emails[a.UserID] == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id string, role staff.Role) error {
	a, ok := m.assignments[id]
	if !ok || !a.IsActive() {
		return staff.ErrNotFound
	}
	a.State = staff.Active{Role: role}
	return nil
}

func (m *mockRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	a, ok := m.assignments[id]
	if !ok || !a.IsActive() {
		return staff.ErrNotFound
	}
	role, _ := a.ActiveRole()
	if role == staff.RoleOwner {
		owners := 0
		for _, other := range m.assignments {
			if r, ok := other.ActiveRole(); ok && r == staff.RoleOwner && other.VenueID == a.VenueID {
				owners++
			}
		}
		if owners <= 1 {
			return staff.ErrLastOwner
		}
	}
	a.State = staff.Deactivated{At: at, LastRole: role}
	return nil
}

func (m *mockRepository) ListActiveEmailsByRole(ctx context.Context, venueID string, role staff.Role) ([]string, error) {
	var out []string
	for _, a := range m.assignments {
		if r, ok := a.ActiveRole(); ok && r == role && a.VenueID == venueID {
			out = append(out, m.emails[a.UserID])
		}
	}
	return out, nil
}

func (m *mockRepository) ListActive(ctx context.Context, venueID string) ([]staff.Member, error) {
	var out []staff.Member
	for _, a := range m.assignments {
		if r, ok := a.ActiveRole(); ok && a.VenueID == venueID {
			out = append(out, staff.Member{ID: a.ID, UserID: a.UserID, Email: m.emails[a.UserID], Role: r, CreatedAt: a.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockInvitations struct {
	rows       map[string]*invitationDatamodel.StaffInvitation
	deleted    []string
	shouldFail bool
	collisions int
}

func (m *mockInvitations) HasLiveInvitation(ctx context.Context, venueID, email string, now time.Time) (bool, error) {
	for _, r := range m.rows {
		if r.VenueID == venueID && r.Email == email && r.IsLive(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInvitations) CreateInvitation(ctx context.Context, row *invitationDatamodel.StaffInvitation) error {
	if m.shouldFail {
		return errors.New("insert failed")
	}
	if m.collisions > 0 {
		m.collisions--
		return staff.ErrTokenCollision
	}
	cp := *row
	m.rows[row.ID] = &cp
	return nil
}

func (m *mockInvitations) DeleteInvitation(ctx context.Context, id string) error {
	delete(m.rows, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockInvitations) ListLiveInvitations(ctx context.Context, venueID string, now time.Time) ([]invitationDatamodel.StaffInvitation, error) {
	var out []invitationDatamodel.StaffInvitation
	for _, r := range m.rows {
		if r.VenueID == venueID && r.IsLive(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockVenues struct{}

func (mockVenues) VenueName(ctx context.Context, venueID string) (string, error) {
	if venueID == "missing" {
		return "", internal.ErrVenueNotFound
	}
	return "Alpha Cafe", nil
}

type mockSender struct {
	sent       []notification.Message
	shouldFail bool
}

func (m *mockSender) Send(ctx context.Context, msg notification.Message) (string, error) {
	if m.shouldFail {
		return "", errors.New("mail provider down")
	}
	m.sent = append(m.sent, msg)
	return msg.ID, nil
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func as(userID string) context.Context {
	return internal.ContextWithIdentity(context.Background(), &internal.Identity{UserID: userID, Email: userID + "@example.com", Name: userID})
}

var _ = Describe("Service", func() {
	const venueID = "venue-1"

	var (
		repo        *mockRepository
		invitations *mockInvitations
		sender      *mockSender
		now         time.Time
		svc         *staff.Service
	)

	BeforeEach(func() {
		repo = newMockRepository()
		invitations = &mockInvitations{rows: make(map[string]*invitationDatamodel.StaffInvitation)}
		sender = &mockSender{}
		now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

		repo.add("s-owner", "owner", "owner@example.com", venueID, staff.RoleOwner)
		repo.add("s-manager", "manager", "manager@example.com", venueID, staff.RoleManager)
		repo.add("s-server", "server", "server@example.com", venueID, staff.RoleServer)
		repo.add("s-host", "host", "host@example.com", venueID, staff.RoleHost)
		repo.add("s-elsewhere", "outsider", "outsider@example.com", "venue-2", staff.RoleOwner)

		svc = staff.NewService(repo, repo, invitations, mockVenues{}, staff.Options{
			Sender:    sender,
			PublicURL: "https://app.example.com",
			Now:       func() time.Time { return now },
		}, testLogger)
	})

	It("rejects anonymous callers before any business check", func() {
		_, err := svc.ListStaff(context.Background(), venueID)
		Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())

		_, err = svc.InviteStaff(context.Background(), venueID, staff.InviteStaffDTO{Email: "x", Role: "nope"})
		Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())

		Expect(errors.Is(svc.UpdateStaffRole(context.Background(), "missing", staff.UpdateStaffRoleDTO{Role: staff.RoleHost}), internal.ErrUnauthenticated)).To(BeTrue())
		Expect(errors.Is(svc.DeactivateStaff(context.Background(), "missing"), internal.ErrUnauthenticated)).To(BeTrue())
	})

	Describe("ListStaff", func() {
		It("returns active staff and live invitations to any member", func() {
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleKitchen})
			Expect(err).NotTo(HaveOccurred())

			list, err := svc.ListStaff(as("host"), venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.ActiveStaff).To(HaveLen(4))
			Expect(list.PendingInvitations).To(HaveLen(1))
			Expect(list.PendingInvitations[0].Email).To(Equal("new@example.com"))
		})

		It("denies members of other venues and deactivated members", func() {
			_, err := svc.ListStaff(as("outsider"), venueID)
			Expect(errors.Is(err, internal.ErrNoVenueAccess)).To(BeTrue())

			Expect(svc.DeactivateStaff(as("owner"), "s-host")).To(Succeed())
			_, err = svc.ListStaff(as("host"), venueID)
			Expect(errors.Is(err, internal.ErrNoVenueAccess)).To(BeTrue())
		})

		It("hides expired invitations", func() {
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleKitchen})
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(8 * 24 * time.Hour)
			list, err := svc.ListStaff(as("owner"), venueID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.PendingInvitations).To(BeEmpty())
		})
	})

	Describe("InviteStaff", func() {
		It("persists an invitation expiring in seven days and sends the accept link", func() {
			resp, err := svc.InviteStaff(as("manager"), venueID, staff.InviteStaffDTO{Email: " New@Example.com ", Role: staff.RoleServer})
			Expect(err).NotTo(HaveOccurred())

			row := invitations.rows[resp.InvitationID]
			Expect(row).NotTo(BeNil())
			Expect(row.Email).To(Equal("new@example.com"))
			Expect(row.ExpiresAt).To(Equal(now.Add(7 * 24 * time.Hour)))
			Expect(row.InvitedBy).To(Equal("manager"))
			Expect(row.TokenHash).NotTo(BeEmpty())

			Expect(sender.sent).To(HaveLen(1))
			Expect(sender.sent[0].To).To(Equal("new@example.com"))
			Expect(sender.sent[0].Payload["accept_url"]).To(HavePrefix("https://app.example.com/invitations/accept?token="))
			Expect(sender.sent[0].Payload["accept_url"]).NotTo(ContainSubstring(row.TokenHash))
		})

		It("denies floor roles", func() {
			for _, caller := range []string{"server", "host"} {
				_, err := svc.InviteStaff(as(caller), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleServer})
				Expect(err).To(Equal(staff.ErrMustManageToInvite))
			}
		})

		It("reports existing staff before duplicate invitations", func() {
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "server@example.com", Role: staff.RoleHost})
			Expect(errors.Is(err, internal.ErrAlreadyStaff)).To(BeTrue())

			_, err = svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})
			Expect(errors.Is(err, internal.ErrDuplicateInvite)).To(BeTrue())
		})

		It("allows a fresh invitation once the previous one expired", func() {
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(7 * 24 * time.Hour)
			_, err = svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown roles as a validation error", func() {
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: "JANITOR"})
			Expect(internal.ErrorCodeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("regenerates the token after a hash collision", func() {
			invitations.collisions = 1
			resp, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})
			Expect(err).NotTo(HaveOccurred())
			Expect(invitations.rows).To(HaveKey(resp.InvitationID))
			Expect(sender.sent).To(HaveLen(1))
		})

		It("fails internally rather than as a duplicate when collisions persist", func() {
			invitations.collisions = 10
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})

			Expect(errors.Is(err, internal.ErrDuplicateInvite)).To(BeFalse())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(errors.Is(err, staff.ErrTokenCollision)).To(BeTrue())
			Expect(sender.sent).To(BeEmpty())
		})

		It("deletes the invitation when the notification cannot be sent", func() {
			sender.shouldFail = true
			_, err := svc.InviteStaff(as("owner"), venueID, staff.InviteStaffDTO{Email: "new@example.com", Role: staff.RoleHost})

			Expect(errors.Is(err, internal.ErrNotification)).To(BeTrue())
			Expect(invitations.rows).To(BeEmpty())
			Expect(invitations.deleted).To(HaveLen(1))
		})
	})

	Describe("UpdateStaffRole", func() {
		It("changes a role in place", func() {
			Expect(svc.UpdateStaffRole(as("manager"), "s-server", staff.UpdateStaffRoleDTO{Role: staff.RoleCashier})).To(Succeed())
			role, _ := repo.assignments["s-server"].ActiveRole()
			Expect(role).To(Equal(staff.RoleCashier))
		})

		It("checks not found, then access, then self, then the manager ceiling", func() {
			err := svc.UpdateStaffRole(as("server"), "missing", staff.UpdateStaffRoleDTO{Role: staff.RoleHost})
			Expect(errors.Is(err, internal.ErrStaffNotFound)).To(BeTrue())

			err = svc.UpdateStaffRole(as("server"), "s-server", staff.UpdateStaffRoleDTO{Role: staff.RoleHost})
			Expect(internal.ErrorCodeOf(err)).To(Equal(internal.ErrCodeAccessDenied))

			err = svc.UpdateStaffRole(as("manager"), "s-manager", staff.UpdateStaffRoleDTO{Role: staff.RoleOwner})
			Expect(err).To(Equal(staff.ErrSelfRoleChange))

			err = svc.UpdateStaffRole(as("owner"), "s-owner", staff.UpdateStaffRoleDTO{Role: staff.RoleManager})
			Expect(err).To(Equal(staff.ErrSelfRoleChange))

			err = svc.UpdateStaffRole(as("manager"), "s-owner", staff.UpdateStaffRoleDTO{Role: staff.RoleHost})
			Expect(err).To(Equal(staff.ErrManagerOwnerTarget))

			err = svc.UpdateStaffRole(as("manager"), "s-server", staff.UpdateStaffRoleDTO{Role: staff.RoleOwner})
			Expect(err).To(Equal(staff.ErrManagerPromoteOwner))
		})

		It("treats callers from other venues as denied", func() {
			err := svc.UpdateStaffRole(as("outsider"), "s-server", staff.UpdateStaffRoleDTO{Role: staff.RoleHost})
			Expect(errors.Is(err, internal.ErrNoVenueAccess)).To(BeTrue())
		})
	})

	Describe("DeactivateStaff", func() {
		It("soft deletes and then reports not found", func() {
			Expect(svc.DeactivateStaff(as("manager"), "s-server")).To(Succeed())
			Expect(repo.assignments["s-server"].IsActive()).To(BeFalse())

			err := svc.DeactivateStaff(as("manager"), "s-server")
			Expect(errors.Is(err, internal.ErrStaffNotFound)).To(BeTrue())
		})

		It("forbids self deactivation even for owners", func() {
			err := svc.DeactivateStaff(as("owner"), "s-owner")
			Expect(err).To(Equal(staff.ErrSelfDeactivate))
		})

		It("protects the last owner", func() {
			err := svc.DeactivateStaff(as("manager"), "s-owner")
			Expect(err).To(Equal(staff.ErrLastOwnerDeactivate))
			Expect(repo.assignments["s-owner"].IsActive()).To(BeTrue())
		})

		It("removes an owner when another remains", func() {
			repo.add("s-owner2", "owner2", "owner2@example.com", venueID, staff.RoleOwner)
			Expect(svc.DeactivateStaff(as("owner2"), "s-owner")).To(Succeed())
		})

		It("denies floor roles", func() {
			err := svc.DeactivateStaff(as("host"), "s-server")
			Expect(err).To(Equal(staff.ErrMustManageToDeactivate))
		})
	})

	It("surfaces store failures as internal errors", func() {
		repo.shouldFail = true
		_, err := svc.ListStaff(as("owner"), venueID)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(500))
	})
})
