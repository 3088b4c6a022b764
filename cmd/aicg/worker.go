package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/assembly"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/taskrt"
	"github.com/waveCodeSite/aicg/internal/tracing"
)

// newWorkerCommand runs one asynq.Server draining every capability queue,
// generalizing the teacher's Processor.StartProcessor (one queue, one
// concurrency number) into the per-capability weighted queue map
// internal/queue.Weights builds.
func newWorkerCommand() *cobra.Command {
	var concurrency int
	var kinds []string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "run a task worker process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			shutdownTracing, err := tracing.Setup(cmd.Context(), "aicg-worker", cfg.Tracing.Enabled)
			if err != nil {
				return wrapStartup(err)
			}
			defer shutdownTracing(context.Background())

			d, err := openDeps(cfg)
			if err != nil {
				return err
			}

			hub := events.NewHub()
			stop := make(chan struct{})
			go hub.Run(stop)
			defer close(stop)

			qc := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
			defer qc.Close()
			exec := executor.New(d.repo, qc, hub, log)

			asm := assembly.New(d.repo, d.blobs, cfg.FFmpegPath, log)
			allowed := make([]models.TaskKind, 0, len(kinds))
			for _, k := range kinds {
				allowed = append(allowed, models.TaskKind(k))
			}
			limits := taskrt.ConcurrencyLimits{
				Text:        cfg.Worker.Text,
				Image:       cfg.Worker.Image,
				TTS:         cfg.Worker.TTS,
				VideoSubmit: cfg.Worker.VideoSubmit,
				Assembly:    cfg.Worker.Assembly,
			}
			rt := taskrt.New(d.repo, buildRegistry(), d.blobs, asm, hub, exec, log, limits, allowed...)

			weights := queue.Weights(
				cfg.Worker.Text, cfg.Worker.Image, cfg.Worker.TTS,
				cfg.Worker.VideoSubmit, cfg.Worker.VideoPoll, cfg.Worker.Assembly,
			)
			total := concurrency
			if total <= 0 {
				for _, w := range weights {
					total += w
				}
			}

			srv := asynq.NewServer(
				asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password},
				asynq.Config{Concurrency: total, Queues: weights, RetryDelayFunc: queue.RetryDelay},
			)

			log.Info("worker starting", zap.Int("concurrency", total))
			if err := srv.Run(rt.NewServeMux()); err != nil {
				return fmt.Errorf("worker server stopped: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "overrides the sum of per-capability concurrency caps")
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "restrict this process to the named task kinds (default: all)")
	return cmd
}
