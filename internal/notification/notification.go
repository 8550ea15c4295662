// Package notification delivers transactional messages (staff invitations,
// password resets, payment account updates) to people by email.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindStaffInvitation      Kind = "staff_invitation"
	KindPasswordReset        Kind = "password_reset"
	KindPaymentAccountStatus Kind = "payment_account_status"
)

// Message is a single outbound notification. Payload keys are kind specific.
type Message struct {
	ID      string
	To      string
	Kind    Kind
	Payload map[string]string
}

func NewMessage(to string, kind Kind, payload map[string]string) Message {
	return Message{
		ID:      ulid.Make().String(),
		To:      to,
		Kind:    kind,
		Payload: payload,
	}
}

func (m Message) Validate() error {
	if m.To == "" {
		return errors.New("recipient is required")
	}
	if _, ok := templates[m.Kind]; !ok {
		return fmt.Errorf("unknown notification kind %q", m.Kind)
	}
	return nil
}

// Sender delivers a message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message) error
}

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher is shut down")
)
