package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// TypeSendPasscode emails a one-time passcode to an account holder
	TypeSendPasscode = "email:send_passcode"
)

// QueueMail is the queue outbound email is enqueued on
const QueueMail = "mail"

// PasscodePayload is the payload of a TypeSendPasscode task
type PasscodePayload struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSendPasscodeTask creates a task that delivers code to email. The task
// stops retrying once the passcode has expired.
func NewSendPasscodeTask(email, code string, expiresAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PasscodePayload{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendPasscode, payload,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(5),
		asynq.Deadline(expiresAt),
	), nil
}

// ParsePasscodePayload parses the payload of a TypeSendPasscode task
func ParsePasscodePayload(task *asynq.Task) (PasscodePayload, error) {
	var payload PasscodePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Email == "" || payload.Code == "" {
		return payload, fmt.Errorf("passcode payload is missing email or code")
	}
	return payload, nil
}
