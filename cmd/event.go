package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test events through the same bus and subscribers the server uses.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus, and to NATS when messaging is configured, for debugging`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var eventData string

func publishTestEvent(eventType string) error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	eventBus, broker, err := initEventBus(config.Messaging, prometheus.NewRegistry(), log)
	if err != nil {
		return err
	}
	defer broker.Close()

	if !knownEventType(eventType) {
		eventBus.Subscribe(eventType, events.AuditHandler(log))
		if broker != nil {
			eventBus.Subscribe(eventType, events.NewForwarder(broker, config.Messaging.SubjectPrefix).Handler())
		}
	}

	testEvent := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	log.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eventBus.PublishSync(ctx, testEvent); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Info("test event published successfully")
	return nil
}

// knownEventType reports whether initEventBus already subscribed eventType.
func knownEventType(eventType string) bool {
	for _, t := range events.AllEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
