package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/chainpay/internal/config"
	"github.com/smallbiznis/chainpay/internal/reconcile"
	"github.com/smallbiznis/chainpay/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the claim-submission API and run reconciliation on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(append(baseModules(),
				fx.Invoke(registerHTTPServer),
				fx.Invoke(registerReconcileSchedule),
			)...)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func registerHTTPServer(lc fx.Lifecycle, srv *server.Server, cfg config.Config, log *zap.Logger) {
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}

func registerReconcileSchedule(lc fx.Lifecycle, engine *reconcile.Engine, cfg config.Config, log *zap.Logger) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Reconcile.Schedule, func() {
		// Scheduled runs are live unless configured otherwise; the CLI
		// is the place for exploratory dry runs.
		summary, err := engine.Run(context.Background(), reconcile.RunOptions{
			DryRun: cfg.Reconcile.DryRun,
		})
		if err != nil {
			log.Error("scheduled reconciliation failed", zap.Error(err))
			return
		}
		if summary.Errors > 0 {
			log.Warn("scheduled reconciliation finished with errors",
				zap.Int("errors", summary.Errors),
			)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("reconciliation schedule registered", zap.String("schedule", cfg.Reconcile.Schedule))
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-scheduler.Stop().Done()
			return nil
		},
	})
	return nil
}
