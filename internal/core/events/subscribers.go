package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditHandler writes every event to the structured log.
func AuditHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "domain event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}
}

// EventCounter counts published domain events by type.
type EventCounter struct {
	total *prometheus.CounterVec
}

func NewEventCounter(reg prometheus.Registerer) (*EventCounter, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "venue",
		Name:      "domain_events_total",
		Help:      "Domain events published, by event type.",
	}, []string{"type"})

	if err := reg.Register(total); err != nil {
		return nil, fmt.Errorf("register domain event counter: %w", err)
	}
	return &EventCounter{total: total}, nil
}

func (c *EventCounter) Handler() Handler {
	return func(_ context.Context, event Event) error {
		c.total.WithLabelValues(event.EventType()).Inc()
		return nil
	}
}

func (c *EventCounter) Collector() *prometheus.CounterVec {
	return c.total
}

// SubjectPublisher is satisfied by pkg/bus.Bus.
type SubjectPublisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Forwarder republishes events to an external broker under "<prefix>.<event type>".
type Forwarder struct {
	publisher SubjectPublisher
	prefix    string
}

func NewForwarder(publisher SubjectPublisher, prefix string) *Forwarder {
	return &Forwarder{publisher: publisher, prefix: prefix}
}

func (f *Forwarder) Subject(eventType string) string {
	if f.prefix == "" {
		return eventType
	}
	return f.prefix + "." + eventType
}

func (f *Forwarder) Handler() Handler {
	return func(ctx context.Context, event Event) error {
		if err := f.publisher.Publish(ctx, f.Subject(event.EventType()), event); err != nil {
			return fmt.Errorf("forward event %s: %w", event.EventID(), err)
		}
		return nil
	}
}
