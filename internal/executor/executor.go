package executor

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/repository"
)

var tracer = otel.Tracer("aicg/executor")

type Executor struct {
	repo  *repository.Repository
	queue *queue.Client
	hub   *events.Hub
	log   *zap.Logger
}

func New(repo *repository.Repository, q *queue.Client, hub *events.Hub, log *zap.Logger) *Executor {
	return &Executor{repo: repo, queue: q, hub: hub, log: log}
}

// Run subscribes to task completion events and re-evaluates every affected
// Job's readiness, the executor's main loop. It never returns until stop
// fires; callers run it in its own goroutine.
func (ex *Executor) Run(ctx context.Context, stop <-chan struct{}) {
	ch := make(chan events.Event, 64)
	ex.hub.Subscribe(ch, events.TopicJobs)
	defer ex.hub.Unsubscribe(ch, events.TopicJobs)
	for {
		select {
		case <-stop:
			return
		case ev := <-ch:
			data, ok := ev.Data.(events.TaskEvent)
			if !ok {
				continue
			}
			ex.log.Debug("executor woken by event", zap.String("kind", ev.Kind), zap.String("task_id", data.TaskID))
			ex.onTaskEvent(ctx, data)
		}
	}
}

func (ex *Executor) onTaskEvent(ctx context.Context, data events.TaskEvent) {
	if err := ex.Evaluate(ctx, data.JobID); err != nil {
		ex.log.Error("stage readiness evaluation failed", zap.String("job_id", data.JobID), zap.Error(err))
	}
}

// SubmitJob computes the transitive closure of stages target_stage requires,
// creates the Job row, and runs one evaluation pass immediately so any
// stage with no unmet dependencies (S0, or every already-complete stage on
// a resumed chapter) is enqueued without waiting for an event.
func (ex *Executor) SubmitJob(ctx context.Context, chapterID string, targetStage StageName, continueOnPartial bool) (*models.Job, error) {
	chapter, err := ex.repo.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	stages := StagesFor(projectTypeOf(ctx, ex.repo, chapter))
	if _, ok := StageByName(stages, targetStage); !ok {
		return nil, apperr.Validation("unknown target stage " + string(targetStage))
	}

	job := &models.Job{
		ChapterID:         chapterID,
		Kind:              "pipeline_run",
		TargetStage:       string(targetStage),
		ContinueOnPartial: continueOnPartial,
	}
	if err := ex.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := ex.repo.SetJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		ex.log.Warn("set job running failed", zap.Error(err))
	}
	if err := ex.Evaluate(ctx, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

func projectTypeOf(ctx context.Context, repo *repository.Repository, chapter *models.Chapter) models.ProjectType {
	project, err := repo.GetProject(ctx, chapter.ProjectID)
	if err != nil {
		return models.ProjectTypeMovie
	}
	return project.Type
}

// Evaluate walks every stage of the job's target closure, enqueueing any
// whose dependencies are now satisfied and whose tasks have not already
// been materialized, then recomputes the Job's weighted progress.
func (ex *Executor) Evaluate(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "executor.Evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("job_id", jobID)),
	)
	defer span.End()

	job, err := ex.repo.GetJob(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if job.Status == models.JobStatusSuccess || job.Status == models.JobStatusFailed || job.Status == models.JobStatusCancelled {
		return nil
	}
	if job.CancelRequested {
		return ex.repo.SetJobStatus(ctx, job.ID, models.JobStatusCancelled)
	}

	chapter, err := ex.repo.GetChapter(ctx, job.ChapterID)
	if err != nil {
		return err
	}
	stages := StagesFor(projectTypeOf(ctx, ex.repo, chapter))
	closure := TransitiveClosure(stages, StageName(job.TargetStage))

	allDone := true
	anyFailed := false
	var totalWeight, doneWeight float64
	var stats models.JobStatistics

	ordered := orderedStages(stages, closure)
	for _, stage := range ordered {
		ready, partial, err := ex.stageReady(ctx, job, stage)
		if err != nil {
			return err
		}
		existing, err := ex.repo.ListTasksByJobAndStage(ctx, job.ID, string(stage.Name))
		if err != nil {
			return err
		}
		if ready && len(existing) == 0 {
			if err := ex.materialize(ctx, job, chapter, stage); err != nil {
				ex.log.Error("materialize stage failed", zap.String("stage", string(stage.Name)), zap.Error(err))
			}
			existing, _ = ex.repo.ListTasksByJobAndStage(ctx, job.ID, string(stage.Name))
		}

		success, failed, total := tally(existing)
		stats.Total += total
		stats.Success += success
		stats.Failed += failed
		w := stageWeight(stage.Capability)
		totalWeight += w
		if total > 0 {
			doneWeight += w * float64(success) / float64(total)
		}
		if total == 0 || success+failed < total {
			allDone = false
		}
		if failed > 0 && success == 0 && total > 0 {
			anyFailed = true
		}
		_ = partial
	}

	progress := 0.0
	if totalWeight > 0 {
		progress = doneWeight / totalWeight
	}
	if err := ex.repo.UpdateJobProgress(ctx, job.ID, progress, stats); err != nil {
		ex.log.Warn("update job progress failed", zap.Error(err))
	}

	if anyFailed {
		return ex.repo.FinishJob(ctx, job.ID, models.JobStatusFailed, "", "a required stage produced zero successes")
	}
	if allDone {
		return ex.repo.FinishJob(ctx, job.ID, models.JobStatusSuccess, ex.resultRef(ctx, chapter), "")
	}
	return nil
}

// resultRef resolves the artifact a successful job should point at: the
// chapter's assembled video if assembly already ran, the chapter ID
// otherwise (a target short of S8/N1 still succeeds, e.g. image-only runs).
func (ex *Executor) resultRef(ctx context.Context, chapter *models.Chapter) string {
	vt, err := ex.repo.GetVideoTaskByChapter(ctx, chapter.ID)
	if err == nil && vt.VideoURL != "" {
		return vt.VideoURL
	}
	return chapter.ID
}

func tally(tasks []models.Task) (success, failed, total int) {
	for _, t := range tasks {
		total++
		switch t.Status {
		case models.TaskStatusSuccess:
			success++
		case models.TaskStatusFailed:
			failed++
		}
	}
	return
}

// orderedStages returns the closure in an order that always lists a stage
// before anything that depends on it, so materialize never runs ahead of a
// stage it reads from.
func orderedStages(stages []Stage, closure map[StageName]bool) []Stage {
	var out []Stage
	seen := map[StageName]bool{}
	var visit func(name StageName)
	visit = func(name StageName) {
		if seen[name] || !closure[name] {
			return
		}
		stage, ok := StageByName(stages, name)
		if !ok {
			return
		}
		for _, dep := range stage.DependsOn {
			visit(dep)
		}
		seen[name] = true
		out = append(out, stage)
	}
	names := make([]StageName, 0, len(closure))
	for n := range closure {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, n := range names {
		visit(n)
	}
	return out
}

// stageReady reports whether every dependency of stage has reached a
// releasable state for this job: fully successful, or partially successful
// with continue_on_partial set (spec.md §4.5's partial-readiness policy).
func (ex *Executor) stageReady(ctx context.Context, job *models.Job, stage Stage) (ready bool, partial bool, err error) {
	if len(stage.DependsOn) == 0 {
		return true, false, nil
	}
	for _, depName := range stage.DependsOn {
		success, failed, total, err := ex.repo.StageCounts(ctx, job.ID, string(depName))
		if err != nil {
			return false, false, err
		}
		if total == 0 {
			return false, false, nil // dependency hasn't even been materialized yet
		}
		if success+failed < total {
			return false, false, nil // still in flight
		}
		if failed > 0 {
			if success == 0 {
				return false, false, nil // zero successes: never releases downstream
			}
			partial = true
			if !job.ContinueOnPartial {
				return false, true, nil
			}
		}
	}
	return true, partial, nil
}

func (ex *Executor) enqueue(ctx context.Context, job *models.Job, kind models.TaskKind, cap models.TaskCapability, stage StageName, payload models.TaskPayload) error {
	task := &models.Task{
		JobID:      job.ID,
		Kind:       kind,
		Capability: cap,
		Stage:      string(stage),
		Payload:    payload,
	}
	if err := ex.repo.CreateTask(ctx, task); err != nil {
		return err
	}
	return ex.queue.Enqueue(ctx, task.ID, cap)
}
