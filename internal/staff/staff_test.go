package staff_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	staffDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/staff"
	"github.com/frahmantamala/venue-management/internal/staff"
)

var _ = Describe("Assignment state", func() {
	It("reads a row without deleted_at as active", func() {
		a := staff.FromDataModel(&staffDatamodel.Assignment{ID: "a1", Role: "HOST"})
		role, ok := a.ActiveRole()
		Expect(ok).To(BeTrue())
		Expect(role).To(Equal(staff.RoleHost))
	})

	It("reads a soft deleted row as deactivated and keeps the last role", func() {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		a := staff.FromDataModel(&staffDatamodel.Assignment{ID: "a1", Role: "HOST", DeletedAt: &at})

		Expect(a.IsActive()).To(BeFalse())
		_, ok := a.ActiveRole()
		Expect(ok).To(BeFalse())
		Expect(a.State).To(Equal(staff.Deactivated{At: at, LastRole: staff.RoleHost}))

		row := staff.ToDataModel(a)
		Expect(row.DeletedAt).To(Equal(&at))
		Expect(row.Role).To(Equal("HOST"))
	})
})
