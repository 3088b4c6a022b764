package assembly

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// overlapTrimFrames is spec.md §4.6 step 4's constant: K = round(1.5 * fps),
// the number of leading frames every clip after the first must drop because
// it was generated starting from the previous clip's last keyframe.
func overlapTrimFrames(fps int) int {
	return int(math.Round(1.5 * float64(fps)))
}

// majorityFPS probes every clip's framerate with ffprobe and returns the
// framerate most clips agree on; on a split vote it falls back to
// targetFPS and lets concatWithOverlapTrim's scale filter re-encode
// everything to it (spec.md §4.6 step 3).
func majorityFPS(ctx context.Context, ffmpegPath string, clips []string, targetFPS int) (int, error) {
	ffprobePath := strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)
	counts := map[int]int{}
	for _, clip := range clips {
		fps, err := probeFPS(ctx, ffprobePath, clip)
		if err != nil {
			return 0, fmt.Errorf("probe %s: %w", clip, err)
		}
		counts[fps]++
	}
	best, bestCount := 0, 0
	tie := false
	for fps, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount = fps, count
			tie = false
		case count == bestCount && fps != best:
			tie = true
		}
	}
	if tie || best == 0 {
		return targetFPS, nil
	}
	return best, nil
}

func probeFPS(ctx context.Context, ffprobePath, clip string) (int, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		clip)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return parseFrameRate(strings.TrimSpace(string(out)))
}

// parseFrameRate parses ffprobe's "num/den" framerate output, rounding to
// the nearest whole fps (e.g. "24000/1001" -> 24).
func parseFrameRate(s string) (int, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	den := 1.0
	if len(parts) == 2 {
		den, err = strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, err
		}
	}
	if den == 0 {
		return 0, fmt.Errorf("zero denominator in frame rate %q", s)
	}
	return int(math.Round(num / den)), nil
}

// concatWithOverlapTrim builds a filter_complex that trims trimFrames
// leading frames (and the equivalent audio duration) from every clip after
// the first, scales/pads every clip to resolution at fps, then concatenates
// them and re-encodes at CRF 18 (spec.md §4.6 steps 4-5). Grounded on
// GoldenLandForever-V2V's ConcatVideos (concat-list + stream copy, falling
// back to re-encode on failure); the overlap trim forces re-encoding from
// the start since a concat demuxer can't do per-input frame trims.
func concatWithOverlapTrim(ctx context.Context, ffmpegPath string, clips []string, trimFrames int, resolution string, fps int, outPath string) error {
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		if _, statErr := os.Stat(ffmpegPath); statErr != nil {
			return fmt.Errorf("ffmpeg not found at %q: %w", ffmpegPath, err)
		}
	}

	w, h, err := parseResolution(resolution)
	if err != nil {
		return err
	}

	args := []string{"-y"}
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var filter strings.Builder
	var concatInputs strings.Builder
	for i := range clips {
		trim := 0
		if i > 0 {
			trim = trimFrames
		}
		trimSeconds := float64(trim) / float64(fps)
		fmt.Fprintf(&filter,
			"[%d:v]trim=start_frame=%d,setpts=PTS-STARTPTS,scale=%d:%d,fps=%d[v%d];",
			i, trim, w, h, fps, i)
		fmt.Fprintf(&filter,
			"[%d:a]atrim=start=%.3f,asetpts=PTS-STARTPTS[a%d];",
			i, trimSeconds, i)
		fmt.Fprintf(&concatInputs, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "%sconcat=n=%d:v=1:a=1[outv][outa]", concatInputs.String(), len(clips))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outv]", "-map", "[outa]",
		"-c:v", "libx264", "-preset", "medium", "-crf", "18",
		"-c:a", "aac", "-b:a", "192k",
		outPath,
	)

	return runFFmpeg(ctx, ffmpegPath, args)
}

// mixBGM loops/cuts bgmPath to match videoPath's duration, mixes it under
// the primary audio at volume, and ducks it 6 dB whenever the primary
// track is non-silent (spec.md §4.6 step 6).
func mixBGM(ctx context.Context, ffmpegPath, videoPath, bgmPath string, volume float64, outPath string) error {
	filter := fmt.Sprintf(
		"[1:a]volume=%.3f,aloop=loop=-1:size=2e9[bgm];"+
			"[0:a]asplit=2[dialogue][duckctrl];"+
			"[bgm][duckctrl]sidechaincompress=threshold=0.05:ratio=8:attack=5:release=300:makeup=1,volume=0.5[ducked];"+
			"[dialogue][ducked]amix=inputs=2:duration=first:dropout_transition=0[outa]",
		volume)
	args := []string{
		"-y",
		"-i", videoPath,
		"-stream_loop", "-1", "-i", bgmPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[outa]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		outPath,
	}
	return runFFmpeg(ctx, ffmpegPath, args)
}

// maxErrorMessageBytes matches spec.md §7's truncation of a Task's
// error_message at 4 KiB so one runaway ffmpeg stderr dump can't blow out
// the Artifact Repository's error column.
const maxErrorMessageBytes = 4096

func runFFmpeg(ctx context.Context, ffmpegPath string, args []string) error {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", strings.Join(args, " "), err, truncate(stderr.String(), maxErrorMessageBytes))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func parseResolution(res string) (int, int, error) {
	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, want WxH", res)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q: %w", parts[1], err)
	}
	return w, h, nil
}
