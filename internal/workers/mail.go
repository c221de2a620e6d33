package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/seap-dev/seap/internal/tasks"
)

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender "delivers" email by logging it, for development setups
// without a mail relay.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Email delivered")
	return nil
}

// HandleSendPasscode delivers the passcode carried by a TypeSendPasscode task
func HandleSendPasscode(ctx context.Context, t *asynq.Task, sender Sender, logger zerolog.Logger) error {
	payload, err := tasks.ParsePasscodePayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if time.Now().After(payload.ExpiresAt) {
		logger.Warn().
			Str("email", payload.Email).
			Time("expires_at", payload.ExpiresAt).
			Msg("Passcode expired before delivery, dropping")
		return nil
	}

	msg := Message{
		To:      payload.Email,
		Subject: "Your SEAP verification code",
		Body: fmt.Sprintf("Your verification code is %s. It expires at %s.",
			payload.Code, payload.ExpiresAt.UTC().Format("15:04 MST")),
	}
	if err := sender.Send(ctx, msg); err != nil {
		logger.Error().Err(err).Str("email", payload.Email).Msg("Failed to send passcode email")
		return fmt.Errorf("failed to send passcode email: %w", err)
	}

	logger.Info().Str("email", payload.Email).Msg("Passcode email sent")
	return nil
}
