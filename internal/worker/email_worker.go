package worker

// email_worker.go
// Processes email jobs from QueueEmail and sends them over SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a plain-text email. Implemented by infra.Mailer.
type Sender interface {
	Send(to, subject, body string) error
}

type EmailWorker struct {
	sender Sender
}

func NewEmailWorker(sender Sender) *EmailWorker {
	return &EmailWorker{sender: sender}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A malformed payload never succeeds; drop it.
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	if err := w.sender.Send(payload.ToEmail, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: sent")
	return nil
}
