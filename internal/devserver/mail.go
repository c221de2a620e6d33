package devserver

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/seap-dev/seap/internal/tasks"
)

// Mailer hands a freshly issued passcode to whatever delivers email
type Mailer interface {
	SendPasscode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// QueueMailer enqueues passcode emails for the worker
type QueueMailer struct {
	client *asynq.Client
}

// NewQueueMailer returns a mailer that enqueues on client
func NewQueueMailer(client *asynq.Client) *QueueMailer {
	return &QueueMailer{client: client}
}

func (m *QueueMailer) SendPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	task, err := tasks.NewSendPasscodeTask(email, code, expiresAt)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue passcode email: %w", err)
	}
	return nil
}
