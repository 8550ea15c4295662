package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeVenueCreated          = "venue.created"
	EventTypeStaffInvited          = "staff.invited"
	EventTypeStaffRoleChanged      = "staff.role_changed"
	EventTypeStaffDeactivated      = "staff.deactivated"
	EventTypeInvitationAccepted    = "invitation.accepted"
	EventTypeUserRegistered        = "user.registered"
	EventTypePasswordReset         = "user.password_reset"
	EventTypePaymentAccountUpdated = "payment.account_updated"
)

// AllEventTypes lists every event type the service publishes.
var AllEventTypes = []string{
	EventTypeVenueCreated,
	EventTypeStaffInvited,
	EventTypeStaffRoleChanged,
	EventTypeStaffDeactivated,
	EventTypeInvitationAccepted,
	EventTypeUserRegistered,
	EventTypePasswordReset,
	EventTypePaymentAccountUpdated,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type VenueCreatedEvent struct {
	BaseEvent
	VenueID string `json:"venue_id"`
	Slug    string `json:"slug"`
	OwnerID string `json:"owner_id"`
}

func NewVenueCreatedEvent(venueID, slug, ownerID string) *VenueCreatedEvent {
	return &VenueCreatedEvent{
		BaseEvent: newBase(EventTypeVenueCreated, map[string]interface{}{
			"venue_id": venueID,
			"slug":     slug,
			"owner_id": ownerID,
		}),
		VenueID: venueID,
		Slug:    slug,
		OwnerID: ownerID,
	}
}

type StaffInvitedEvent struct {
	BaseEvent
	InvitationID string `json:"invitation_id"`
	VenueID      string `json:"venue_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	InvitedBy    string `json:"invited_by"`
}

func NewStaffInvitedEvent(invitationID, venueID, email, role, invitedBy string) *StaffInvitedEvent {
	return &StaffInvitedEvent{
		BaseEvent: newBase(EventTypeStaffInvited, map[string]interface{}{
			"invitation_id": invitationID,
			"venue_id":      venueID,
			"email":         email,
			"role":          role,
			"invited_by":    invitedBy,
		}),
		InvitationID: invitationID,
		VenueID:      venueID,
		Email:        email,
		Role:         role,
		InvitedBy:    invitedBy,
	}
}

type StaffRoleChangedEvent struct {
	BaseEvent
	StaffID   string `json:"staff_id"`
	VenueID   string `json:"venue_id"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy string `json:"changed_by"`
}

func NewStaffRoleChangedEvent(staffID, venueID, oldRole, newRole, changedBy string) *StaffRoleChangedEvent {
	return &StaffRoleChangedEvent{
		BaseEvent: newBase(EventTypeStaffRoleChanged, map[string]interface{}{
			"staff_id":   staffID,
			"venue_id":   venueID,
			"old_role":   oldRole,
			"new_role":   newRole,
			"changed_by": changedBy,
		}),
		StaffID:   staffID,
		VenueID:   venueID,
		OldRole:   oldRole,
		NewRole:   newRole,
		ChangedBy: changedBy,
	}
}

type StaffDeactivatedEvent struct {
	BaseEvent
	StaffID       string `json:"staff_id"`
	VenueID       string `json:"venue_id"`
	UserID        string `json:"user_id"`
	DeactivatedBy string `json:"deactivated_by"`
}

func NewStaffDeactivatedEvent(staffID, venueID, userID, deactivatedBy string) *StaffDeactivatedEvent {
	return &StaffDeactivatedEvent{
		BaseEvent: newBase(EventTypeStaffDeactivated, map[string]interface{}{
			"staff_id":       staffID,
			"venue_id":       venueID,
			"user_id":        userID,
			"deactivated_by": deactivatedBy,
		}),
		StaffID:       staffID,
		VenueID:       venueID,
		UserID:        userID,
		DeactivatedBy: deactivatedBy,
	}
}

type InvitationAcceptedEvent struct {
	BaseEvent
	InvitationID string `json:"invitation_id"`
	VenueID      string `json:"venue_id"`
	UserID       string `json:"user_id"`
	StaffID      string `json:"staff_id"`
	Role         string `json:"role"`
}

func NewInvitationAcceptedEvent(invitationID, venueID, userID, staffID, role string) *InvitationAcceptedEvent {
	return &InvitationAcceptedEvent{
		BaseEvent: newBase(EventTypeInvitationAccepted, map[string]interface{}{
			"invitation_id": invitationID,
			"venue_id":      venueID,
			"user_id":       userID,
			"staff_id":      staffID,
			"role":          role,
		}),
		InvitationID: invitationID,
		VenueID:      venueID,
		UserID:       userID,
		StaffID:      staffID,
		Role:         role,
	}
}

type UserEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

func NewUserRegisteredEvent(userID string) *UserEvent {
	return &UserEvent{
		BaseEvent: newBase(EventTypeUserRegistered, map[string]interface{}{"user_id": userID}),
		UserID:    userID,
	}
}

func NewPasswordResetEvent(userID string) *UserEvent {
	return &UserEvent{
		BaseEvent: newBase(EventTypePasswordReset, map[string]interface{}{"user_id": userID}),
		UserID:    userID,
	}
}

type PaymentAccountUpdatedEvent struct {
	BaseEvent
	VenueID   string `json:"venue_id"`
	AccountID string `json:"account_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

func NewPaymentAccountUpdatedEvent(venueID, accountID, oldStatus, newStatus string) *PaymentAccountUpdatedEvent {
	return &PaymentAccountUpdatedEvent{
		BaseEvent: newBase(EventTypePaymentAccountUpdated, map[string]interface{}{
			"venue_id":   venueID,
			"account_id": accountID,
			"old_status": oldStatus,
			"new_status": newStatus,
		}),
		VenueID:   venueID,
		AccountID: accountID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}
