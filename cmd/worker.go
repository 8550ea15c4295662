package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/venue-management/internal/core/events"
	"github.com/frahmantamala/venue-management/pkg/bus"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background consumers",
	Long:  `Start consumers that process domain events forwarded to NATS JetStream.`,
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume forwarded domain events",
	Long:  `Subscribe to the venue event stream with a durable consumer and audit-log every event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startEventWorker()
	},
}

var durableName string

func startEventWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if config.Messaging.NATSURL == "" {
		return fmt.Errorf("messaging.nats_url is required for the event worker")
	}

	log := logger.LoggerWrapper()

	broker, err := bus.New(config.Messaging.NATSURL, nats.Name("venue-management-worker"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer broker.Close()

	subject := config.Messaging.SubjectPrefix + ".>"
	if err := broker.EnsureStream(eventStream, subject); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	audit := events.AuditHandler(log)
	sub, err := broker.Subscribe(ctx, subject, durableName, func(ctx context.Context, data []byte) error {
		var event events.BaseEvent
		if err := json.Unmarshal(data, &event); err != nil {
			// Poison messages are acked so they do not redeliver forever.
			log.Error("dropping undecodable event", "error", err)
			return nil
		}
		return audit(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	log.Info("event worker started", "subject", subject, "durable", durableName)
	<-ctx.Done()
	log.Info("event worker shutting down")
	return nil
}

func init() {
	eventWorkerCmd.Flags().StringVar(&durableName, "durable", "venue-event-audit", "JetStream durable consumer name")

	workerCmd.AddCommand(eventWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
