package history

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultMaintenanceSpec runs maintenance daily at 03:00.
const DefaultMaintenanceSpec = "0 3 * * *"

// Maintenance schedules periodic housekeeping: flushing the current project
// record and any extra jobs the caller registers (usage-ledger pruning).
type Maintenance struct {
	store   *Store
	cron    *cron.Cron
	spec    string
	running bool
}

// NewMaintenance creates a maintenance scheduler for the store.
func NewMaintenance(store *Store, spec string) *Maintenance {
	if spec == "" {
		spec = DefaultMaintenanceSpec
	}

	return &Maintenance{
		store: store,
		cron:  cron.New(),
		spec:  spec,
	}
}

// AddJob registers an extra maintenance job on the same schedule.
func (m *Maintenance) AddJob(name string, fn func() error) error {
	_, err := m.cron.AddFunc(m.spec, func() {
		if err := fn(); err != nil {
			log.Error().Err(err).Str("job", name).Msg("Maintenance job failed")
			return
		}
		log.Debug().Str("job", name).Msg("Maintenance job completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running maintenance on the configured schedule.
func (m *Maintenance) Start() error {
	if m.running {
		return fmt.Errorf("maintenance is already running")
	}

	if _, err := m.cron.AddFunc(m.spec, func() {
		m.store.SaveProjectSessions()
		log.Debug().Msg("Session records flushed")
	}); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", m.spec, err)
	}

	m.cron.Start()
	m.running = true

	log.Info().Str("schedule", m.spec).Msg("History maintenance started")

	return nil
}

// Stop stops the scheduler, waiting for a running job to finish.
func (m *Maintenance) Stop() {
	if !m.running {
		return
	}

	ctx := m.cron.Stop()
	<-ctx.Done()
	m.running = false

	log.Info().Msg("History maintenance stopped")
}
