package worker

// dlq.go: dead letter queue.
// Alert emails that still fail after MaxJobAttempts are parked in
// dlq:{original_queue} so an operator can see which low-stock warnings never
// went out. The list is capped at DLQMaxEntries, newest first.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix = "dlq:"

	// DLQMaxEntries keeps a long SMTP outage from growing Redis without bound.
	DLQMaxEntries = 500
)

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Subject       string          `json:"subject,omitempty"` // email jobs only
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
	Attempts      int             `json:"attempts"`
}

// dlqNow is overridable in tests.
var dlqNow = time.Now

func newDLQEntry(queue, jobType string, payload json.RawMessage, reason string, attempts int) DLQEntry {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      dlqNow().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}
	if jobType == JobTypeEmail {
		var email EmailJobPayload
		if json.Unmarshal(payload, &email) == nil {
			entry.Subject = email.Subject
		}
	}
	return entry
}

// SendToDLQ parks a failed job. Failures to push are logged; the job is lost.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := newDLQEntry(queue, jobType, payload, reason, attempts)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, dlqKey, data)
	pipe.LTrim(ctx, dlqKey, 0, DLQMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("subject", entry.Subject).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job parked")
}

// DLQLength returns the number of parked jobs for a queue; reported by /health.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
