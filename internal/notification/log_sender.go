package notification

import (
	"context"
	"log/slog"
)

// LogSender writes rendered messages to the log instead of delivering them.
// It is the development driver.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	subject, body, err := Render(msg)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "notification sent",
		"message_id", msg.ID,
		"kind", msg.Kind,
		"to", msg.To,
		"subject", subject,
		"body", body)
	return msg.ID, nil
}
