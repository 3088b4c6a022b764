// Package assembly is the Video Assembly Engine of spec.md §4.6: it turns a
// chapter's finished per-shot or per-sentence artifacts into one muxed video
// blob. Grounded on GoldenLandForever-V2V's util/FFmpeg.go VideoProcessor
// (temp-dir scratch space, concat-list file, exec.Command against the
// ffmpeg binary, stream-copy-then-reencode fallback), generalized from its
// fixed setpts hack into the overlap-trim/ducking filter graph the movie
// pipeline needs and a ken-burns/subtitle path for the narrative pipeline.
package assembly

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/repository"
)

// Engine drives the seven-step assembly algorithm of spec.md §4.6 against a
// single chapter at a time. Callers (internal/taskrt's compose_video
// handler, cmd/aicg's compose subcommand) own the Engine's lifetime.
type Engine struct {
	repo       *repository.Repository
	blobs      *blobstore.Store
	ffmpegPath string
	log        *zap.Logger
}

func New(repo *repository.Repository, blobs *blobstore.Store, ffmpegPath string, log *zap.Logger) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Engine{repo: repo, blobs: blobs, ffmpegPath: ffmpegPath, log: log}
}

// Compose runs the assembly algorithm for chapter, dispatching to the movie
// or narrative variant by the owning project's type, and persists the
// result onto the chapter's VideoTask row throughout.
func (e *Engine) Compose(ctx context.Context, chapterID, resolution string, fps int, bgmRef string, bgmVolume float64) (string, error) {
	chapter, err := e.repo.GetChapter(ctx, chapterID)
	if err != nil {
		return "", err
	}
	project, err := e.repo.GetProject(ctx, chapter.ProjectID)
	if err != nil {
		return "", err
	}
	if bgmVolume > 0.5 {
		bgmVolume = 0.5
	}

	vt, err := e.repo.UpsertVideoTask(ctx, chapterID, resolution, fps, bgmRef, bgmVolume)
	if err != nil {
		return "", err
	}

	scratch, err := os.MkdirTemp("", "aicg-assembly")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	var videoURL string
	if project.Type == models.ProjectTypeNarrative {
		videoURL, err = e.composeNarrative(ctx, vt, scratch)
	} else {
		videoURL, err = e.composeMovie(ctx, vt, scratch)
	}

	if err != nil {
		_ = e.repo.FinishVideoTask(ctx, vt.ID, "", err.Error())
		return "", err
	}
	if err := e.repo.FinishVideoTask(ctx, vt.ID, videoURL, ""); err != nil {
		return "", err
	}
	return videoURL, nil
}

// composeMovie implements spec.md §4.6's seven movie-pipeline steps:
// validate, download, probe, overlap trim, concatenate, mix BGM, upload.
func (e *Engine) composeMovie(ctx context.Context, vt *models.VideoTask, scratch string) (string, error) {
	script, err := e.repo.EnsureScript(ctx, vt.ChapterID)
	if err != nil {
		return "", err
	}
	transitions, err := e.orderedTransitions(ctx, script.ID)
	if err != nil {
		return "", err
	}

	// step 1: validate
	if len(transitions) < 1 {
		return "", apperr.IncompleteMaterials([]string{"at least 2 shots required"})
	}
	var missing []string
	for _, t := range transitions {
		if t.VideoURL == "" {
			missing = append(missing, "transition_video:"+t.ID)
		}
	}
	if len(missing) > 0 {
		return "", apperr.IncompleteMaterials(missing)
	}

	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusDownloading, 0.1, 0, 0); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}

	// step 2: download, bounded to 5 concurrent fetches
	urls := make([]string, len(transitions))
	for i, t := range transitions {
		urls[i] = t.VideoURL
	}
	clips, err := downloadAll(ctx, scratch, urls, 5)
	if err != nil {
		return "", err
	}

	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusConcatenating, 0.4, 0, len(clips)); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}

	// step 3: probe, majority-vote fps
	fps, err := majorityFPS(ctx, e.ffmpegPath, clips, vt.FPS)
	if err != nil {
		return "", err
	}

	// step 4+5: overlap-trim every clip after the first, then concatenate
	trimFrames := overlapTrimFrames(fps)
	concatPath := scratch + "/concat.mp4"
	if err := concatWithOverlapTrim(ctx, e.ffmpegPath, clips, trimFrames, vt.Resolution, vt.FPS, concatPath); err != nil {
		return "", err
	}
	finalPath := concatPath

	// step 6: mix BGM with ducking, if present and audible. bgm_volume = 0
	// must leave the primary track bit-identical to a no-BGM run (spec.md
	// §8), so skip the mix pass entirely rather than mixing in silence.
	if vt.BGMRef != "" && vt.BGMVolume > 0 {
		if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusSynthesizing, 0.75, 0, len(clips)); err != nil {
			e.log.Warn("update video task progress failed", zap.Error(err))
		}
		bgmPath := scratch + "/bgm" + extForURL(vt.BGMRef)
		if err := downloadFile(ctx, vt.BGMRef, bgmPath); err != nil {
			return "", err
		}
		mixedPath := scratch + "/mixed.mp4"
		if err := mixBGM(ctx, e.ffmpegPath, concatPath, bgmPath, vt.BGMVolume, mixedPath); err != nil {
			return "", err
		}
		finalPath = mixedPath
	}

	// step 7: upload
	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusUploading, 0.9, 0, len(clips)); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}
	return e.uploadResult(ctx, vt, finalPath)
}

func (e *Engine) uploadResult(ctx context.Context, vt *models.VideoTask, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read assembled video: %w", err)
	}
	chapter, err := e.repo.GetChapter(ctx, vt.ChapterID)
	if err != nil {
		return "", err
	}
	key := blobstore.Key(chapter.ProjectID, "composed_video", vt.ID, ".mp4")
	res, err := e.blobs.Put(ctx, key, data, "video/mp4")
	if err != nil {
		return "", fmt.Errorf("upload assembled video: %w", err)
	}
	return res.URL, nil
}

// orderedTransitions flattens a script's shots in Scene.Order/Shot.Order
// order and returns the Transitions joining consecutive shots, in the same
// order the Stage Graph Executor created them in (Transition.Order).
func (e *Engine) orderedTransitions(ctx context.Context, scriptID string) ([]models.Transition, error) {
	transitions, err := e.repo.ListTransitions(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transition, len(transitions))
	copy(out, transitions)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
