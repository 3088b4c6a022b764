package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/assembly"
)

// newComposeCommand runs the Video Assembly Engine directly against one
// chapter, bypassing the Task Runtime entirely: the one-shot debugging path
// of spec.md §6, for iterating on the ffmpeg filter graph without a worker
// or a Job around it. It prints a preflight table of what materials are
// already present before attempting the mux, the way a build tool reports
// its target list before actually building.
func newComposeCommand() *cobra.Command {
	var chapterID, resolution, bgmRef string
	var fps int
	var bgmVolume float64

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "one-shot assembly for debugging",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chapterID == "" {
				return fmt.Errorf("--chapter is required")
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			d, err := openDeps(cfg)
			if err != nil {
				return err
			}

			if err := printPreflight(cmd, d, chapterID); err != nil {
				log.Warn("preflight inspection failed, composing anyway", zap.Error(err))
			}

			asm := assembly.New(d.repo, d.blobs, cfg.FFmpegPath, log)
			url, err := asm.Compose(cmd.Context(), chapterID, resolution, fps, bgmRef, bgmVolume)
			if err != nil {
				return fmt.Errorf("compose chapter %s: %w", chapterID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&chapterID, "chapter", "", "chapter id to compose")
	cmd.Flags().StringVar(&resolution, "resolution", "1920x1080", "output resolution")
	cmd.Flags().IntVar(&fps, "fps", 24, "output frame rate")
	cmd.Flags().StringVar(&bgmRef, "bgm", "", "background music URL")
	cmd.Flags().Float64Var(&bgmVolume, "bgm-volume", 0.3, "background music mix volume, 0..0.5 (higher values are capped at 0.5)")
	return cmd
}

func printPreflight(cmd *cobra.Command, d *deps, chapterID string) error {
	ctx := cmd.Context()
	script, err := d.repo.EnsureScript(ctx, chapterID)
	if err != nil {
		return err
	}
	scenes, err := d.repo.ListScenes(ctx, script.ID)
	if err != nil {
		return err
	}
	transitions, err := d.repo.ListTransitions(ctx, script.ID)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"scene", "shots ready", "transitions ready"})

	for _, scene := range scenes {
		shots, err := d.repo.ListShots(ctx, scene.ID)
		if err != nil {
			return err
		}
		readyShots := 0
		for _, shot := range shots {
			if shot.KeyframeURL != "" {
				readyShots++
			}
		}
		readyTransitions := 0
		for _, t := range transitions {
			if t.VideoURL != "" {
				readyTransitions++
			}
		}
		tw.AppendRow(table.Row{scene.ID, fmt.Sprintf("%d/%d", readyShots, len(shots)), readyTransitions})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return nil
}
