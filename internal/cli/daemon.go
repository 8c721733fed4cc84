package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newDaemonCmd(s *session) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and the control API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				s.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, s.cfg, s.logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "control API listen address (env POSTPILOT_ADDR)")
	return cmd
}

// serve runs the scheduler loop and the control API until ctx is cancelled or
// the server fails. In-flight runs finish before it returns.
func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- a.sched.Run(ctx)
	}()

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var (
		serveErr  error
		schedExit = schedDone
	)
	select {
	case err := <-errCh:
		serveErr = fmt.Errorf("server error: %w", err)
	case err := <-schedDone:
		schedExit = nil
		if err != nil {
			serveErr = fmt.Errorf("scheduler: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutdown signal received, draining connections and in-flight runs")
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("server shutdown: %w", err)
	}

	if schedExit != nil {
		if err := <-schedExit; err != nil && serveErr == nil {
			serveErr = fmt.Errorf("scheduler: %w", err)
		}
	}
	if serveErr == nil {
		a.logger.Info("daemon stopped gracefully")
	}
	return serveErr
}
