package staff_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/staff"
)

func TestStaff(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Staff Suite")
}

var floorRoles = []staff.Role{staff.RoleServer, staff.RoleKitchen, staff.RoleHost, staff.RoleCashier}

var _ = Describe("Authorize", func() {
	It("denies callers without an assignment for every operation", func() {
		for _, op := range []staff.Operation{staff.OpList, staff.OpInvite, staff.OpUpdateRole, staff.OpDeactivate, staff.OpManagePayments} {
			err := staff.Authorize("", op, "", "")
			Expect(err).NotTo(BeNil())
			Expect(err.Code).To(Equal(internal.ErrCodeAccessDenied))
			Expect(err.Message).To(Equal("you do not have access to this venue"))
		}
	})

	It("lets every role list staff", func() {
		for _, r := range staff.AllRoles {
			Expect(staff.CanActOn(r, staff.OpList, "", "")).To(BeTrue(), string(r))
		}
	})

	It("limits mutations to owners and managers", func() {
		for _, op := range []staff.Operation{staff.OpInvite, staff.OpUpdateRole, staff.OpDeactivate} {
			Expect(staff.CanActOn(staff.RoleOwner, op, "", "")).To(BeTrue())
			Expect(staff.CanActOn(staff.RoleManager, op, "", "")).To(BeTrue())
			for _, r := range floorRoles {
				Expect(staff.CanActOn(r, op, "", "")).To(BeFalse(), string(r))
			}
		}
		Expect(staff.Authorize(staff.RoleHost, staff.OpInvite, "", "").Message).To(Equal("must be Owner or Manager to invite staff"))
	})

	It("applies the manager ceiling on role changes", func() {
		err := staff.Authorize(staff.RoleManager, staff.OpUpdateRole, staff.RoleOwner, staff.RoleServer)
		Expect(err).To(Equal(staff.ErrManagerOwnerTarget))

		err = staff.Authorize(staff.RoleManager, staff.OpUpdateRole, staff.RoleServer, staff.RoleOwner)
		Expect(err).To(Equal(staff.ErrManagerPromoteOwner))

		Expect(staff.CanActOn(staff.RoleManager, staff.OpUpdateRole, staff.RoleServer, staff.RoleManager)).To(BeTrue())
		Expect(staff.CanActOn(staff.RoleOwner, staff.OpUpdateRole, staff.RoleOwner, staff.RoleCashier)).To(BeTrue())
		Expect(staff.CanActOn(staff.RoleOwner, staff.OpUpdateRole, staff.RoleServer, staff.RoleOwner)).To(BeTrue())
	})

	It("reserves payments for owners", func() {
		Expect(staff.CanActOn(staff.RoleOwner, staff.OpManagePayments, "", "")).To(BeTrue())
		Expect(staff.CanActOn(staff.RoleManager, staff.OpManagePayments, "", "")).To(BeFalse())
	})
})

var _ = Describe("Role", func() {
	It("orders owner over manager over the peer floor roles", func() {
		Expect(staff.RoleOwner.Outranks(staff.RoleManager)).To(BeTrue())
		Expect(staff.RoleManager.Outranks(staff.RoleServer)).To(BeTrue())
		Expect(staff.RoleServer.Outranks(staff.RoleKitchen)).To(BeFalse())
		Expect(staff.RoleKitchen.Outranks(staff.RoleServer)).To(BeFalse())
	})

	It("recognises exactly six roles", func() {
		Expect(staff.AllRoles).To(HaveLen(6))
		Expect(staff.Role("JANITOR").Valid()).To(BeFalse())
	})
})
