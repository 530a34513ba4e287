package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rizal/kova/internal/metrics"
	"github.com/rizal/kova/pkg/history"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background service",
	Long: `Run the background service: a Prometheus metrics endpoint, a watcher
that reloads session records rewritten by other kova processes, and the
scheduled maintenance jobs (session flush, usage-ledger pruning).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "metrics listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	metrics.EnsureRegistered()

	maintenance := history.NewMaintenance(a.sessions, a.cfg.History.MaintenanceSchedule)

	if a.ledger != nil && a.cfg.Usage.RetentionDays > 0 {
		retention := time.Duration(a.cfg.Usage.RetentionDays) * 24 * time.Hour
		if err := maintenance.AddJob("prune-usage", func() error {
			pruned, err := a.ledger.Prune(retention)
			if err != nil {
				return err
			}
			if pruned > 0 {
				log.Info().Int64("rows", pruned).Msg("Pruned usage ledger")
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if err := maintenance.Start(); err != nil {
		return err
	}
	defer maintenance.Stop()

	if a.cfg.History.Watch {
		watcher, err := history.NewWatcher(a.sessions.HistoryDir(), a.log.GetZerolog(), a.sessions.Invalidate)
		if err != nil {
			return fmt.Errorf("failed to start history watcher: %w", err)
		}
		defer watcher.Stop()
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
