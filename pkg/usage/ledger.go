// Package usage records per-run token counters in a local SQLite ledger.
// The ledger is advisory: it must never block or fail an agent run, so
// callers log-and-continue on its errors.
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/rizal/kova/pkg/history"
)

// Ledger stores one row per recorded exchange.
type Ledger struct {
	db *sql.DB
}

// Totals aggregates token counters.
type Totals struct {
	Runs             int `json:"runs"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelTotals is Totals attributed to one backend label.
type ModelTotals struct {
	Model string `json:"model"`
	Totals
}

// Open creates or opens the ledger database.
func Open(dbPath string) (*Ledger, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("Usage ledger opened")

	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS token_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_token_usage_project ON token_usage(project_id);
		CREATE INDEX IF NOT EXISTS idx_token_usage_created ON token_usage(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return nil
}

// Record stores the counters reported for one exchange. Zero usage is
// skipped; the boundary passes absent counters as zero.
func (l *Ledger) Record(projectID, entryID, model string, u history.TokenUsage) error {
	if u.IsZero() {
		return nil
	}

	_, err := l.db.Exec(
		`INSERT INTO token_usage (project_id, entry_id, model, prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, entryID, model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	return nil
}

// ProjectTotals aggregates counters for one project.
func (l *Ledger) ProjectTotals(projectID string) (Totals, error) {
	row := l.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0)
		 FROM token_usage WHERE project_id = ?`,
		projectID,
	)

	var t Totals
	if err := row.Scan(&t.Runs, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens); err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate project usage: %w", err)
	}
	return t, nil
}

// ByModel aggregates counters per backend label, highest spend first.
func (l *Ledger) ByModel() ([]ModelTotals, error) {
	rows, err := l.db.Query(
		`SELECT model, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0)
		 FROM token_usage GROUP BY model ORDER BY SUM(total_tokens) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelTotals
	for rows.Next() {
		var mt ModelTotals
		if err := rows.Scan(&mt.Model, &mt.Runs, &mt.PromptTokens, &mt.CompletionTokens, &mt.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		out = append(out, mt)
	}

	return out, rows.Err()
}

// Prune deletes rows older than the retention window.
func (l *Ledger) Prune(olderThan time.Duration) (int64, error) {
	res, err := l.db.Exec(
		`DELETE FROM token_usage WHERE created_at < ?`,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage rows: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug().Int64("rows", n).Msg("Pruned usage ledger")
	}
	return n, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
