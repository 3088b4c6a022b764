package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// composeNarrative implements spec.md §4.6's narrative path: a ken-burns
// clip per sentence sized to its measured audio length, subtitles burned
// in from subtitle_text, concatenated in sentence order, then BGM mixed as
// in the movie path.
func (e *Engine) composeNarrative(ctx context.Context, vt *models.VideoTask, scratch string) (string, error) {
	sentences, err := e.repo.ListSentences(ctx, vt.ChapterID)
	if err != nil {
		return "", err
	}

	type sentenceMaterial struct {
		sentence models.Sentence
		asset    *models.SentenceAsset
	}
	materials := make([]sentenceMaterial, 0, len(sentences))
	var missing []string
	for _, s := range sentences {
		asset, err := e.repo.GetSentenceAsset(ctx, s.ID)
		if err != nil {
			return "", err
		}
		if asset == nil || asset.ImageURL == "" || asset.AudioURL == "" {
			missing = append(missing, "sentence_asset:"+s.ID)
			continue
		}
		materials = append(materials, sentenceMaterial{sentence: s, asset: asset})
	}
	if len(missing) > 0 {
		return "", apperr.IncompleteMaterials(missing)
	}

	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusDownloading, 0.1, 0, len(materials)); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}

	w, h, err := parseResolution(vt.Resolution)
	if err != nil {
		return "", err
	}

	clipPaths := make([]string, 0, len(materials))
	for i, m := range materials {
		if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusSynthesizing, 0.1+0.5*float64(i)/float64(len(materials)), i, len(materials)); err != nil {
			e.log.Warn("update video task progress failed", zap.Error(err))
		}

		imgPath := filepath.Join(scratch, "sentence_"+strconv.Itoa(i)+extForURL(m.asset.ImageURL))
		if err := downloadFile(ctx, m.asset.ImageURL, imgPath); err != nil {
			return "", fmt.Errorf("download sentence %d image: %w", i, err)
		}
		audioPath := filepath.Join(scratch, "sentence_"+strconv.Itoa(i)+extForURL(m.asset.AudioURL))
		if err := downloadFile(ctx, m.asset.AudioURL, audioPath); err != nil {
			return "", fmt.Errorf("download sentence %d audio: %w", i, err)
		}

		durationS := float64(m.asset.DurationMs) / 1000.0
		clipPath := filepath.Join(scratch, "clip_"+strconv.Itoa(i)+".mp4")
		if err := kenBurnsClip(ctx, e.ffmpegPath, imgPath, audioPath, m.asset.SubtitleText, durationS, w, h, vt.FPS, clipPath); err != nil {
			return "", fmt.Errorf("render sentence %d clip: %w", i, err)
		}
		clipPaths = append(clipPaths, clipPath)
	}

	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusConcatenating, 0.65, len(materials), len(materials)); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}
	concatPath := filepath.Join(scratch, "concat.mp4")
	if err := concatClips(ctx, e.ffmpegPath, clipPaths, concatPath); err != nil {
		return "", err
	}
	finalPath := concatPath

	if vt.BGMRef != "" && vt.BGMVolume > 0 {
		if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusSynthesizing, 0.8, len(materials), len(materials)); err != nil {
			e.log.Warn("update video task progress failed", zap.Error(err))
		}
		bgmPath := filepath.Join(scratch, "bgm"+extForURL(vt.BGMRef))
		if err := downloadFile(ctx, vt.BGMRef, bgmPath); err != nil {
			return "", err
		}
		mixedPath := filepath.Join(scratch, "mixed.mp4")
		if err := mixBGM(ctx, e.ffmpegPath, concatPath, bgmPath, vt.BGMVolume, mixedPath); err != nil {
			return "", err
		}
		finalPath = mixedPath
	}

	if err := e.repo.UpdateVideoTaskProgress(ctx, vt.ID, models.VideoTaskStatusUploading, 0.95, len(materials), len(materials)); err != nil {
		e.log.Warn("update video task progress failed", zap.Error(err))
	}
	return e.uploadResult(ctx, vt, finalPath)
}

// kenBurnsClip renders a single still image into a slow-zoom clip of
// exactly durationS seconds (the sentence's measured audio length),
// burning subtitleText in as a drawtext overlay and muxing in the
// sentence's audio track.
func kenBurnsClip(ctx context.Context, ffmpegPath, imgPath, audioPath, subtitleText string, durationS float64, w, h, fps int, outPath string) error {
	frames := int(durationS * float64(fps))
	if frames < 1 {
		frames = 1
	}
	zoomFilter := fmt.Sprintf(
		"scale=%d:-1,zoompan=z='min(zoom+0.0008,1.15)':d=%d:s=%dx%d:fps=%d",
		w*2, frames, w, h, fps)

	filter := zoomFilter
	if subtitleText != "" {
		filter += fmt.Sprintf(",drawtext=text='%s':fontcolor=white:fontsize=36:box=1:boxcolor=black@0.5:boxborderw=8:x=(w-text_w)/2:y=h-text_h-40",
			escapeDrawtext(subtitleText))
	}

	args := []string{
		"-y",
		"-loop", "1", "-i", imgPath,
		"-i", audioPath,
		"-filter_complex", "[0:v]" + filter + "[outv]",
		"-map", "[outv]", "-map", "1:a",
		"-t", fmt.Sprintf("%.3f", durationS),
		"-c:v", "libx264", "-preset", "medium", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k",
		"-pix_fmt", "yuv420p",
		outPath,
	}
	return runFFmpeg(ctx, ffmpegPath, args)
}

// concatClips joins pre-rendered clips with a plain concat demuxer: unlike
// the movie pipeline's transition clips, ken-burns clips share no
// duplicated boundary frame, so no overlap trim is needed here.
func concatClips(ctx context.Context, ffmpegPath string, clips []string, outPath string) error {
	listPath := outPath + ".list.txt"
	var list string
	for _, clip := range clips {
		list += fmt.Sprintf("file '%s'\n", clip)
	}
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
	return runFFmpeg(ctx, ffmpegPath, args)
}

func escapeDrawtext(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\'', ':', '\\':
			out = append(out, '\\', r)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
