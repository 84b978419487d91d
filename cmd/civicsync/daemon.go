package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/pkg/statusserver"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync loop and the processing loop until a shutdown signal arrives",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := statusserver.New(":"+getEnv("STATUS_PORT", "8080"), getEnv("GIN_MODE", "release"), a.db.DB(), a.cfg, a.conductor)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("status server exited with error", "error", err)
			}
		}()

		err = a.conductor.RunDaemon(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Fetcher.ShutdownGracePeriod)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Error("error shutting down status server", "error", shutdownErr)
		}

		return err
	},
}
