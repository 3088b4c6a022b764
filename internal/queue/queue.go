// Package queue wires the Task Runtime's dispatch onto asynq, generalizing
// the teacher's service/queue.go (one fixed task type enqueued onto asynq's
// default queue) into one queue per TaskCapability so each provider
// capability gets its own concurrency weight at the asynq.Server level,
// matching the per-kind caps of spec.md §4.4.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// TypeTaskDispatch is the single asynq task type used for every TaskKind;
// the payload just names which Task row to load and run, so the dispatcher
// re-reads current state from the Artifact Repository rather than trusting
// a stale in-flight copy (spec.md §4.4's resumability requirement).
const TypeTaskDispatch = "task:dispatch"

type Payload struct {
	TaskID string `json:"task_id"`
}

// QueueName maps a provider capability to its asynq queue name; one queue
// per capability lets the asynq.Server's Queues weight map double as the
// per-kind concurrency cap.
func QueueName(cap models.TaskCapability) string {
	return "cap_" + string(cap)
}

// Weights returns the asynq.Config.Queues map from a WorkerConcurrency
// snapshot, so the relative weight between queues mirrors the configured
// concurrency ratio between provider capabilities.
func Weights(text, image, tts, videoSubmit, videoPoll, assembly int) map[string]int {
	return map[string]int{
		QueueName(models.CapabilityText):        text,
		QueueName(models.CapabilityImage):       image,
		QueueName(models.CapabilityTTS):         tts,
		QueueName(models.CapabilityVideoSubmit): videoSubmit,
		QueueName(models.CapabilityVideoPoll):   videoPoll,
		QueueName(models.CapabilityAssembly):    assembly,
	}
}

type Client struct {
	inner *asynq.Client
}

func NewClient(addr, password string) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password})}
}

func (c *Client) Close() error { return c.inner.Close() }

// Enqueue schedules a task for dispatch onto the queue matching its
// capability. MaxRetry is generous here: the handler itself decides
// permanent failure via apperr.Retryable and returns asynq.SkipRetry, so
// this ceiling only bounds the provider/timeout/quota retry loop.
func (c *Client) Enqueue(ctx context.Context, taskID string, cap models.TaskCapability) error {
	payload, err := json.Marshal(Payload{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}
	t := asynq.NewTask(TypeTaskDispatch, payload,
		asynq.Queue(QueueName(cap)),
		asynq.MaxRetry(8),
		asynq.Timeout(20*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	_, err = c.inner.EnqueueContext(ctx, t)
	if err != nil {
		return fmt.Errorf("enqueue task %s: %w", taskID, err)
	}
	return nil
}

// RetryDelay implements spec.md §7's provider-error backoff: exponential
// with base 2s doubling per attempt, capped at 60s, except a QuotaError
// backs off on the same curve capped at 300s instead, since a rate limit
// clears on its own schedule rather than the provider's transient-failure
// one.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	ceiling := 60 * time.Second
	if apperr.KindOf(err) == apperr.KindQuota {
		ceiling = 300 * time.Second
	}
	delay := 2 * time.Second
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	return delay
}

// IsTerminal reports whether err should stop asynq's retry loop outright,
// wrapping apperr.Retryable so the handler can return asynq.SkipRetry.
func IsTerminal(err error) bool {
	return !apperr.Retryable(err)
}
