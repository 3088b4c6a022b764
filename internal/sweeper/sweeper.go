// Package sweeper is the Provider Polling Sweeper of spec.md §4.7: it
// reconciles in-flight external video generation tasks by actively polling
// them, rather than waiting on a provider webhook. Grounded on
// GoldenLandForever-V2V's pkg/queue/I2V_delayed.go delayed-recheck pattern
// (a per-task next-check timestamp, re-enqueued with backoff until the
// provider reports a terminal status); generalized from that callback's
// passive re-check into a self-driven poll loop, since spec.md requires
// reconciliation to work even if the provider never calls back.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/provider"
	"github.com/waveCodeSite/aicg/internal/repository"
)

const (
	minBackoff = 5 * time.Second
	maxBackoff = 60 * time.Second
)

// Sweeper polls every Transition with an outstanding external_task_id on a
// per-transition exponential backoff, 5s up to 60s. Next-check state lives
// only in Redis, a cache: losing it just means the next tick re-polls
// everything immediately, so a restart never misses a completion.
type Sweeper struct {
	repo     *repository.Repository
	registry *provider.Registry
	blobs    *blobstore.Store
	hub      *events.Hub
	exec     *executor.Executor
	redis    *redis.Client
	delay    *DelayQueue
	log      *zap.Logger

	tick time.Duration
}

// New wires delayQueue as an optional dependency: it is nil whenever the
// operator hasn't configured an AMQP broker, and the sweeper falls back to
// Redis-only backoff bookkeeping in that case. exec is this process's own
// Stage Graph Executor, evaluated directly on every terminal transition for
// the same reason internal/taskrt does: events.Hub doesn't cross the
// process boundary between `sweeper` and `serve`, so S7->S8 would otherwise
// never advance once a transition finishes outside the `serve` process.
func New(repo *repository.Repository, registry *provider.Registry, blobs *blobstore.Store, hub *events.Hub, exec *executor.Executor, redisClient *redis.Client, delayQueue *DelayQueue, log *zap.Logger) *Sweeper {
	return &Sweeper{repo: repo, registry: registry, blobs: blobs, hub: hub, exec: exec, redis: redisClient, delay: delayQueue, log: log, tick: 2 * time.Second}
}

// Run polls on Sweeper's tick interval until stop fires. Each tick only
// re-checks transitions whose backoff window has elapsed.
func (s *Sweeper) Run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.log.Error("sweep pass failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	pending, err := s.repo.ListPendingTransitions(ctx)
	if err != nil {
		return fmt.Errorf("list pending transitions: %w", err)
	}

	woken := map[string]bool{}
	if s.delay != nil {
		ids, err := s.delay.Drain()
		if err != nil {
			s.log.Warn("delay queue drain failed", zap.Error(err))
		}
		for _, id := range ids {
			woken[id] = true
		}
	}

	for _, t := range pending {
		due, err := s.due(ctx, t.ID)
		if err != nil {
			s.log.Warn("backoff lookup failed, polling anyway", zap.String("transition_id", t.ID), zap.Error(err))
		} else if !due && !woken[t.ID] {
			continue
		}
		s.pollOne(ctx, t)
	}
	return nil
}

func (s *Sweeper) pollOne(ctx context.Context, t models.Transition) {
	key, err := s.repo.GetActiveAPIKeyByID(ctx, t.APIKeyID)
	if err != nil {
		s.log.Error("sweeper could not resolve api key", zap.String("transition_id", t.ID), zap.Error(err))
		return
	}
	adapter, ok := s.registry.Build(key.Provider, key.Secret, key.BaseURL)
	if !ok || adapter.Video == nil {
		_ = s.repo.MarkTransitionFailed(ctx, t.ID, "no video adapter registered for provider "+key.Provider)
		s.publishTransitionEvent(t, "transition.failed")
		s.reevaluate(ctx, t)
		return
	}

	result, err := adapter.Video.Poll(ctx, t.ExternalTaskID)
	if err != nil {
		if !apperr.Retryable(err) {
			_ = s.repo.MarkTransitionFailed(ctx, t.ID, err.Error())
			s.publishTransitionEvent(t, "transition.failed")
			s.reevaluate(ctx, t)
			return
		}
		s.backoff(ctx, t.ID)
		return
	}

	switch result.Status {
	case provider.PollStatusRunning:
		s.backoff(ctx, t.ID)
	case provider.PollStatusFailed:
		_ = s.repo.MarkTransitionFailed(ctx, t.ID, result.Error)
		s.publishTransitionEvent(t, "transition.failed")
		s.clearBackoff(ctx, t.ID)
		s.reevaluate(ctx, t)
	case provider.PollStatusSucceeded:
		projectID, err := s.repo.ProjectIDForScript(ctx, t.ScriptID)
		if err != nil {
			s.log.Error("sweeper could not resolve project id", zap.String("transition_id", t.ID), zap.Error(err))
			return
		}
		put, err := s.blobs.Put(ctx, blobstore.Key(projectID, "transition_video", t.ID, extForMime(result.Mime)), result.VideoBytes, result.Mime)
		if err != nil {
			s.log.Error("sweeper blob upload failed", zap.String("transition_id", t.ID), zap.Error(err))
			s.backoff(ctx, t.ID)
			return
		}
		if err := s.repo.UpsertTransitionVideo(ctx, t.ID, put.URL, t.VideoPrompt, t.Model); err != nil {
			s.log.Error("sweeper upsert transition video failed", zap.String("transition_id", t.ID), zap.Error(err))
			return
		}
		s.publishTransitionEvent(t, "transition.completed")
		s.clearBackoff(ctx, t.ID)
		s.reevaluate(ctx, t)
	}
}

// reevaluate re-runs the Stage Graph Executor's readiness pass for t's job
// from inside this sweeper process; see the exec field's doc comment.
func (s *Sweeper) reevaluate(ctx context.Context, t models.Transition) {
	if s.exec == nil {
		return
	}
	if err := s.exec.Evaluate(ctx, t.JobID); err != nil {
		s.log.Error("post-transition stage evaluation failed", zap.String("job_id", t.JobID), zap.String("transition_id", t.ID), zap.Error(err))
	}
}

func extForMime(mime string) string {
	switch mime {
	case "video/webm":
		return ".webm"
	default:
		return ".mp4"
	}
}

func (s *Sweeper) publishTransitionEvent(t models.Transition, kind string) {
	s.hub.Publish(events.Event{Topic: events.TopicJobs, Kind: kind, Data: events.TaskEvent{JobID: t.JobID, TaskID: t.ID}})
}

func (s *Sweeper) due(ctx context.Context, transitionID string) (bool, error) {
	key := "sweeper:next_check:" + transitionID
	val, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	due, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return true, nil
	}
	return !time.Now().Before(due), nil
}

// backoff doubles the wait since the last poll of transitionID, capped at
// maxBackoff, and records the next-due timestamp.
func (s *Sweeper) backoff(ctx context.Context, transitionID string) {
	key := "sweeper:backoff:" + transitionID
	current, err := s.redis.Get(ctx, key).Result()
	wait := minBackoff
	if err == nil {
		if parsed, perr := time.ParseDuration(current); perr == nil {
			wait = parsed * 2
			if wait > maxBackoff {
				wait = maxBackoff
			}
		}
	}
	_ = s.redis.Set(ctx, key, wait.String(), 24*time.Hour).Err()
	_ = s.redis.Set(ctx, "sweeper:next_check:"+transitionID, time.Now().Add(wait).Format(time.RFC3339Nano), 24*time.Hour).Err()

	if s.delay != nil {
		if err := s.delay.ScheduleRecheck(transitionID, wait); err != nil {
			s.log.Warn("delay queue schedule failed", zap.String("transition_id", transitionID), zap.Error(err))
		}
	}
}

func (s *Sweeper) clearBackoff(ctx context.Context, transitionID string) {
	s.redis.Del(ctx, "sweeper:backoff:"+transitionID, "sweeper:next_check:"+transitionID)
}
