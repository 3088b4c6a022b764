package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/httpapi"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/tracing"
)

// newServeCommand runs the HTTP controller plus the Stage Graph Executor's
// readiness loop in the same process, the way the teacher's server binary
// runs gin alongside its StartProcessor goroutine.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			shutdownTracing, err := tracing.Setup(cmd.Context(), "aicg-serve", cfg.Tracing.Enabled)
			if err != nil {
				return wrapStartup(err)
			}
			defer shutdownTracing(context.Background())

			d, err := openDeps(cfg)
			if err != nil {
				return err
			}
			qc := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
			defer qc.Close()
			hub := events.NewHub()

			stop := make(chan struct{})
			go hub.Run(stop)

			exec := executor.New(d.repo, qc, hub, log)
			execStop := make(chan struct{})
			go exec.Run(cmd.Context(), execStop)

			srv := httpapi.New(d.repo, exec, hub, log)
			router := srv.NewRouter()

			httpSrv := &http.Server{Addr: cfg.Server.Port, Handler: router}
			go func() {
				log.Info("http controller listening", zap.String("addr", cfg.Server.Port))
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server failed", zap.Error(err))
				}
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Warn("http shutdown error", zap.Error(err))
			}
			close(execStop)
			close(stop)
			return nil
		},
	}
}
