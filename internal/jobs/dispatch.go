// Package jobs defines the background task types processed by the
// worker and the client used to enqueue them.  Dispatch runs execute
// out of the HTTP request path: the API enqueues, the worker runs.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/service"
)

// TypeDispatchAnnouncement is the task type for announcement dispatch
// runs, both immediate and scheduled.
const TypeDispatchAnnouncement = "announcement:dispatch"

// DispatchPayload identifies the announcement a task should run.
type DispatchPayload struct {
	TenantID       uint64 `json:"tenant_id"`
	AnnouncementID string `json:"announcement_id"`
}

// Client enqueues dispatch tasks onto Redis.
type Client struct {
	inner *asynq.Client
}

// NewClient constructs a task client against the given Redis address.
func NewClient(redisAddr, redisPassword string) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword})}
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.inner.Close() }

// EnqueueDispatch schedules a dispatch run.  A nil runAt (or one in
// the past) runs as soon as a worker is free.  MaxRetry covers broker
// and database hiccups; the run itself is resumable, so a retried
// task never double-sends.
func (c *Client) EnqueueDispatch(ctx context.Context, tenantID uint64, announcementID string, runAt *time.Time) error {
	payload, err := json.Marshal(DispatchPayload{TenantID: tenantID, AnnouncementID: announcementID})
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Minute),
		asynq.Queue("dispatch"),
	}
	if runAt != nil && runAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(*runAt))
	}
	_, err = c.inner.EnqueueContext(ctx, asynq.NewTask(TypeDispatchAnnouncement, payload), opts...)
	return err
}

// Handler processes dispatch tasks by driving the dispatcher.
type Handler struct {
	dispatcher *service.Dispatcher
	log        zerolog.Logger
}

// NewHandler constructs the task handler.
func NewHandler(d *service.Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{dispatcher: d, log: log.With().Str("component", "jobs").Logger()}
}

// ProcessTask runs one dispatch task.  Errors are returned to asynq
// for retry with backoff; the database-held progress makes the retry
// pick up where the failed attempt stopped.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DispatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	sum, err := h.dispatcher.Run(ctx, p.TenantID, p.AnnouncementID)
	if err != nil {
		h.log.Error().Err(err).Str("announcement_id", p.AnnouncementID).Msg("dispatch task failed")
		return err
	}
	h.log.Info().Str("announcement_id", p.AnnouncementID).
		Int("sent", sum.Sent).Int("failed", sum.Failed).Int("skipped", sum.Skipped).
		Msg("dispatch task finished")
	return nil
}

// Mux returns the task router for the worker process.
func Mux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDispatchAnnouncement, h)
	return mux
}
