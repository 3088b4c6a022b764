// Package taskrt is the Task Runtime of spec.md §4.4: it owns task
// dispatch, retry classification, and per-capability concurrency, pattern
// matching on TaskKind the way the teacher's HandleGenerateTask switches on
// task.Type, but fully resolving the payload from the tagged union instead
// of re-parsing a generic parameters blob.
package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/assembly"
	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/provider"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/repository"
)

// ConcurrencyLimits caps how many tasks of each capability this Runtime
// runs at once, enforced with an in-process semaphore alongside (not
// instead of) asynq's queue weights: weights only prioritize across a
// shared worker pool, they don't hard-cap one capability's share of it.
// A zero value leaves that capability unbounded. VideoPoll has no field
// here since spec.md §4.4 leaves its concurrency unbounded.
type ConcurrencyLimits struct {
	Text        int
	Image       int
	TTS         int
	VideoSubmit int
	Assembly    int
}

type Runtime struct {
	repo     *repository.Repository
	registry *provider.Registry
	blobs    *blobstore.Store
	assembly *assembly.Engine
	hub      *events.Hub
	exec     *executor.Executor
	log      *zap.Logger

	allowedKinds map[models.TaskKind]bool
	capSems      map[models.TaskCapability]*semaphore.Weighted
	chapterSems  sync.Map // chapter id -> *semaphore.Weighted(1), for the assembly 1/chapter cap
}

// New builds a Runtime that dispatches every TaskKind. allowedKinds
// restricts this process to a subset (the `worker --kinds=` flag); a task
// of any other kind is returned to asynq for redelivery rather than being
// marked failed, so another worker process can pick it up instead. exec is
// the same Stage Graph Executor the `serve` process runs, constructed here
// against this worker's own repo/queue connections: a worker that finishes
// a task calls exec.Evaluate directly rather than relying on events.Hub,
// since the Hub never crosses the process boundary between `worker` and
// `serve` and would otherwise leave every stage past S0 unevaluated.
func New(repo *repository.Repository, registry *provider.Registry, blobs *blobstore.Store, asm *assembly.Engine, hub *events.Hub, exec *executor.Executor, log *zap.Logger, limits ConcurrencyLimits, allowedKinds ...models.TaskKind) *Runtime {
	rt := &Runtime{repo: repo, registry: registry, blobs: blobs, assembly: asm, hub: hub, exec: exec, log: log}
	if len(allowedKinds) > 0 {
		rt.allowedKinds = make(map[models.TaskKind]bool, len(allowedKinds))
		for _, k := range allowedKinds {
			rt.allowedKinds[k] = true
		}
	}
	rt.capSems = map[models.TaskCapability]*semaphore.Weighted{}
	for cap, limit := range map[models.TaskCapability]int{
		models.CapabilityText:        limits.Text,
		models.CapabilityImage:       limits.Image,
		models.CapabilityTTS:         limits.TTS,
		models.CapabilityVideoSubmit: limits.VideoSubmit,
		models.CapabilityAssembly:    limits.Assembly,
	} {
		if limit > 0 {
			rt.capSems[cap] = semaphore.NewWeighted(int64(limit))
		}
	}
	return rt
}

// chapterSemaphore returns the weight-1 semaphore serializing assembly
// tasks for one chapter, creating it on first use.
func (rt *Runtime) chapterSemaphore(chapterID string) *semaphore.Weighted {
	v, _ := rt.chapterSems.LoadOrStore(chapterID, semaphore.NewWeighted(1))
	return v.(*semaphore.Weighted)
}

// acquireConcurrency blocks until task's capability (and, for an assembly
// task, its chapter) has a free slot, and returns the release func the
// caller must defer. A task kind or capability with no configured cap
// returns a no-op release immediately.
func (rt *Runtime) acquireConcurrency(ctx context.Context, task *models.Task) (func(), error) {
	sem := rt.capSems[task.Capability]
	if sem == nil {
		return func() {}, nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	release := func() { sem.Release(1) }

	if task.Capability == models.CapabilityAssembly && task.Payload.ComposeVideo != nil {
		chapterSem := rt.chapterSemaphore(task.Payload.ComposeVideo.ChapterID)
		if err := chapterSem.Acquire(ctx, 1); err != nil {
			sem.Release(1)
			return nil, err
		}
		release = func() {
			chapterSem.Release(1)
			sem.Release(1)
		}
	}
	return release, nil
}

// NewServeMux wires this Runtime's Dispatch handler onto asynq's mux, one
// handler for every capability queue: the handler itself pattern-matches on
// TaskKind, so a single registration at TypeTaskDispatch covers all eleven
// kinds.
func (rt *Runtime) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeTaskDispatch, rt.Dispatch)
	return mux
}

// Dispatch loads the referenced Task fresh from the Artifact Repository
// (never trusting the asynq payload beyond the id, since a task can be
// requeued long after being enqueued) and routes it by Kind.
func (rt *Runtime) Dispatch(ctx context.Context, at *asynq.Task) error {
	var payload queue.Payload
	if err := json.Unmarshal(at.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	task, err := rt.repo.GetTask(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s: %v: %w", payload.TaskID, err, asynq.SkipRetry)
	}
	if task.CancelRequested {
		_ = rt.repo.MarkTaskFailed(ctx, task.ID, string(apperr.KindCancelled), "cancelled before dispatch")
		rt.publishTaskEvent(task, "task.cancelled")
		return nil
	}
	if task.Status == models.TaskStatusSuccess || task.Status == models.TaskStatusFailed {
		return nil // already terminal; a duplicate delivery, nothing to do
	}
	if rt.allowedKinds != nil && !rt.allowedKinds[task.Kind] {
		return fmt.Errorf("task kind %s not handled by this worker", task.Kind)
	}

	release, err := rt.acquireConcurrency(ctx, task)
	if err != nil {
		return fmt.Errorf("acquire concurrency slot: %w", err)
	}
	defer release()

	if err := rt.repo.MarkTaskRunning(ctx, task.ID); err != nil {
		rt.log.Warn("mark task running failed", zap.String("task_id", task.ID), zap.Error(err))
	}

	result, runErr := rt.run(ctx, task)
	if runErr != nil {
		return rt.handleFailure(ctx, task, runErr)
	}

	if err := rt.repo.MarkTaskSucceeded(ctx, task.ID, result); err != nil {
		rt.log.Error("mark task succeeded failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	rt.publishTaskEvent(task, "task.completed")
	rt.reevaluate(ctx, task)
	return nil
}

func (rt *Runtime) handleFailure(ctx context.Context, task *models.Task, err error) error {
	kind := apperr.KindOf(err)
	if queue.IsTerminal(err) {
		_ = rt.repo.MarkTaskFailed(ctx, task.ID, string(kind), err.Error())
		rt.publishTaskEvent(task, "task.failed")
		rt.reevaluate(ctx, task)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	_ = rt.repo.IncrementTaskRetries(ctx, task.ID)
	if task.Retries >= maxRetries(kind, task.Capability) {
		_ = rt.repo.MarkTaskFailed(ctx, task.ID, string(kind), err.Error())
		rt.publishTaskEvent(task, "task.failed")
		rt.reevaluate(ctx, task)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	rt.log.Info("task failed, will retry", zap.String("task_id", task.ID), zap.String("kind", string(task.Kind)), zap.Error(err))
	return err
}

// reevaluate re-runs the Stage Graph Executor's readiness pass for task's
// job from inside this worker process, since this is the only process
// guaranteed to share a database with the task that just terminated — the
// `serve` process's own executor, subscribed to its own in-process hub,
// never sees this event.
func (rt *Runtime) reevaluate(ctx context.Context, task *models.Task) {
	if rt.exec == nil {
		return
	}
	if err := rt.exec.Evaluate(ctx, task.JobID); err != nil {
		rt.log.Error("post-task stage evaluation failed", zap.String("job_id", task.JobID), zap.String("task_id", task.ID), zap.Error(err))
	}
}

// maxRetries applies spec.md §7's per-kind retry ceilings (text 3, image 2,
// tts 3, video-submit 2, video-poll unbounded), overridden by the
// malformed-response rule ("retried once... then failed permanently")
// regardless of capability.
func maxRetries(kind apperr.Kind, cap models.TaskCapability) int {
	if kind == apperr.KindMalformedResponse {
		return 1
	}
	switch cap {
	case models.CapabilityText:
		return 3
	case models.CapabilityImage:
		return 2
	case models.CapabilityTTS:
		return 3
	case models.CapabilityVideoSubmit:
		return 2
	case models.CapabilityVideoPoll:
		return math.MaxInt32
	default:
		return 3
	}
}

// publishTaskEvent fans the same event out to the job's own topic, for a
// websocket client that cares about exactly one job, and to the fixed
// TopicJobs topic the executor's readiness loop listens on.
func (rt *Runtime) publishTaskEvent(task *models.Task, kind string) {
	data := events.TaskEvent{JobID: task.JobID, TaskID: task.ID}
	rt.hub.Publish(events.Event{Topic: "job:" + task.JobID, Kind: kind, Data: data})
	rt.hub.Publish(events.Event{Topic: events.TopicJobs, Kind: kind, Data: data})
}

func (rt *Runtime) run(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	switch task.Kind {
	case models.TaskKindExtractCharacters:
		return rt.extractCharacters(ctx, task)
	case models.TaskKindExtractScenes:
		return rt.extractScenes(ctx, task)
	case models.TaskKindExtractShots:
		return rt.extractShots(ctx, task)
	case models.TaskKindGenerateSceneImage:
		return rt.generateSceneImage(ctx, task)
	case models.TaskKindGenerateCharacterAvatar:
		return rt.generateCharacterAvatar(ctx, task)
	case models.TaskKindGenerateKeyframe:
		return rt.generateKeyframe(ctx, task)
	case models.TaskKindCreateTransition:
		return rt.createTransition(ctx, task)
	case models.TaskKindSubmitTransitionVideo:
		return rt.submitTransitionVideo(ctx, task)
	case models.TaskKindGenerateSentenceImage:
		return rt.generateSentenceImage(ctx, task)
	case models.TaskKindGenerateSentenceAudio:
		return rt.generateSentenceAudio(ctx, task)
	case models.TaskKindComposeVideo:
		return rt.composeVideo(ctx, task)
	default:
		return models.TaskResult{}, apperr.Validation("unknown task kind " + string(task.Kind))
	}
}

// resolveAdapter looks up the APIKey the payload names and resolves its
// registered Adapter, falling back to genericrest-style classification: an
// unknown provider name is a ProviderError per the Open Question resolution
// rather than a ValidationError, since the api_key row itself was valid at
// task-creation time and the registry gap is an operational, not a request,
// problem.
func (rt *Runtime) resolveAdapter(ctx context.Context, apiKeyID string) (provider.Adapter, error) {
	key, err := rt.repo.GetActiveAPIKeyByID(ctx, apiKeyID)
	if err != nil {
		return provider.Adapter{}, err
	}
	adapter, ok := rt.registry.Build(key.Provider, key.Secret, key.BaseURL)
	if !ok {
		return provider.Adapter{}, apperr.Provider("no adapter registered for provider " + key.Provider)
	}
	return adapter, nil
}
