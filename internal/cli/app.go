package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rizal/kova/internal/config"
	"github.com/rizal/kova/internal/logger"
	"github.com/rizal/kova/pkg/executor"
	"github.com/rizal/kova/pkg/handle"
	"github.com/rizal/kova/pkg/history"
	"github.com/rizal/kova/pkg/usage"
)

// app bundles the configured components a command needs. Commands build one,
// use it, and Close it before returning.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	handles  *handle.Store
	sessions *history.Store
	exec     *executor.Executor
	ledger   *usage.Ledger
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level: level,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	handles, err := handle.New(cfg.Agent.HandlePath)
	if err != nil {
		lg.Close()
		return nil, err
	}

	sessions, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		lg.Close()
		return nil, err
	}

	exec, err := executor.New(executor.Config{
		Handles: handles,
		Binary:  cfg.Agent.Binary,
		Timeout: cfg.Agent.Timeout(),
	})
	if err != nil {
		lg.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      lg,
		handles:  handles,
		sessions: sessions,
		exec:     exec,
	}

	if cfg.Usage.Enabled {
		ledger, err := usage.Open(cfg.Usage.DBPath)
		if err != nil {
			// The ledger is an accessory; a broken database must not block runs
			fmt.Fprintf(os.Stderr, "warning: usage ledger unavailable: %v\n", err)
		} else {
			a.ledger = ledger
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	a.sessions.SaveProjectSessions()
	a.log.Close()
}

// resolveDir normalizes the --dir flag: empty means the current directory,
// and relative paths are made absolute so project identity stays stable.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	return abs, nil
}
