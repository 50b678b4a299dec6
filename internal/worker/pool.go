package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobTypeEmail = "email"

	// MaxJobAttempts is how many times a job runs before it moves to the DLQ.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb        *redis.Client
	alertEmail string
}

// NewDispatcher returns a dispatcher. An empty alertEmail disables low-stock
// alerts.
func NewDispatcher(rdb *redis.Client, alertEmail string) *Dispatcher {
	return &Dispatcher{rdb: rdb, alertEmail: alertEmail}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, Job{Type: JobTypeEmail}, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return errors.New("dispatcher: redis not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	return d.push(ctx, queue, job)
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers maps job types to their handlers. Wired in main so the pool
// has access to all infrastructure dependencies.
type WorkerHandlers struct {
	Email Handler
}

func (h *WorkerHandlers) forType(jobType string) Handler {
	if h == nil {
		return nil
	}
	switch jobType {
	case JobTypeEmail:
		return h.Email
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	d := &Dispatcher{rdb: rdb}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, d, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Backoff between polls while Redis is unreachable. BRPOP fails at once in
// that case, so without it a worker spins.
var (
	pollRetryMin = time.Second
	pollRetryMax = 30 * time.Second
)

func runWorker(ctx context.Context, d *Dispatcher, handlers *WorkerHandlers, id int) {
	queues := []string{QueueEmail}
	backoff := pollRetryMin
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if errors.Is(err, redis.Nil) || (err != nil && ctx.Err() != nil) {
				continue
			}
			if err != nil {
				log.Warn().Err(err).Int("worker", id).Dur("retry_in", backoff).Msg("job queue unavailable")
				if !sleepCtx(ctx, backoff) {
					continue
				}
				backoff = min(backoff*2, pollRetryMax)
				continue
			}
			backoff = pollRetryMin
			if len(result) < 2 {
				continue
			}
			processJob(ctx, d, handlers, result[0], result[1])
		}
	}
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func processJob(ctx context.Context, d *Dispatcher, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	h := handlers.forType(job.Type)
	if h == nil {
		SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		return
	}
	if job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, requeueing")
	if pushErr := d.push(ctx, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("queue", queue).Msg("failed to requeue job")
	}
}
