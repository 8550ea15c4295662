package staff

import (
	"github.com/frahmantamala/venue-management/internal"
)

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleServer  Role = "SERVER"
	RoleKitchen Role = "KITCHEN"
	RoleHost    Role = "HOST"
	RoleCashier Role = "CASHIER"
)

var AllRoles = []Role{RoleOwner, RoleManager, RoleServer, RoleKitchen, RoleHost, RoleCashier}

// privilege orders roles: OWNER > MANAGER > the four floor roles, which are peers.
var privilege = map[Role]int{
	RoleOwner:   3,
	RoleManager: 2,
	RoleServer:  1,
	RoleKitchen: 1,
	RoleHost:    1,
	RoleCashier: 1,
}

func (r Role) Valid() bool {
	_, ok := privilege[r]
	return ok
}

// Outranks reports whether r is strictly more privileged than other.
func (r Role) Outranks(other Role) bool {
	return privilege[r] > privilege[other]
}

func RoleNames() []string {
	names := make([]string, len(AllRoles))
	for i, r := range AllRoles {
		names[i] = string(r)
	}
	return names
}

type Operation string

const (
	OpList           Operation = "list_staff"
	OpInvite         Operation = "invite_staff"
	OpUpdateRole     Operation = "update_staff_role"
	OpDeactivate     Operation = "deactivate_staff"
	OpManagePayments Operation = "manage_payments"
)

var (
	ErrMustManageToInvite     = internal.NewForbiddenError("must be Owner or Manager to invite staff", internal.ErrCodeAccessDenied)
	ErrMustManageToChangeRole = internal.NewForbiddenError("must be Owner or Manager to change staff roles", internal.ErrCodeAccessDenied)
	ErrMustManageToDeactivate = internal.NewForbiddenError("must be Owner or Manager to deactivate staff", internal.ErrCodeAccessDenied)
	ErrManagerOwnerTarget     = internal.NewForbiddenError("Managers cannot change Owner roles", internal.ErrCodeAccessDenied)
	ErrManagerPromoteOwner    = internal.NewForbiddenError("Managers cannot promote to Owner", internal.ErrCodeAccessDenied)
	ErrOwnerOnly              = internal.NewForbiddenError("must be Owner to manage payments", internal.ErrCodeAccessDenied)
	ErrSelfRoleChange         = internal.NewInvalidOperationError("cannot change your own role")
	ErrSelfDeactivate         = internal.NewInvalidOperationError("cannot deactivate yourself")
	ErrLastOwnerDeactivate    = internal.NewInvalidOperationError("cannot deactivate the last Owner")
)

// Authorize decides whether a caller holding callerRole at a venue may perform op.
// An empty callerRole means the caller has no active assignment there. target and
// proposed are only consulted for OpUpdateRole and may be empty to check the
// caller's standing alone.
func Authorize(callerRole Role, op Operation, target, proposed Role) *internal.AppError {
	if !callerRole.Valid() {
		return internal.ErrNoVenueAccess
	}

	switch op {
	case OpList:
		return nil
	case OpInvite:
		if !canManageStaff(callerRole) {
			return ErrMustManageToInvite
		}
		return nil
	case OpUpdateRole:
		if !canManageStaff(callerRole) {
			return ErrMustManageToChangeRole
		}
		if callerRole == RoleManager {
			if target == RoleOwner {
				return ErrManagerOwnerTarget
			}
			if proposed == RoleOwner {
				return ErrManagerPromoteOwner
			}
		}
		return nil
	case OpDeactivate:
		if !canManageStaff(callerRole) {
			return ErrMustManageToDeactivate
		}
		return nil
	case OpManagePayments:
		if callerRole != RoleOwner {
			return ErrOwnerOnly
		}
		return nil
	default:
		return internal.NewForbiddenError("unknown operation", internal.ErrCodeAccessDenied)
	}
}

// CanActOn is the boolean form of Authorize.
func CanActOn(callerRole Role, op Operation, target, proposed Role) bool {
	return Authorize(callerRole, op, target, proposed) == nil
}

func canManageStaff(r Role) bool {
	return r == RoleOwner || r == RoleManager
}
