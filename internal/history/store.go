// Package history keeps a local SQLite log of every resolution the dashboard
// observed, so poisoning rates can be compared across DNSSEC modes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS observations(
	ts INTEGER NOT NULL,
	mode TEXT NOT NULL,
	hostname TEXT NOT NULL,
	resolved_ip TEXT NOT NULL,
	resolver_ip TEXT NOT NULL,
	poisoned INTEGER NOT NULL,
	correct INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_mode ON observations(mode);`

type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

type ModeSummary struct {
	Mode       model.Mode `json:"mode"`
	Total      int        `json:"total"`
	Poisoned   int        `json:"poisoned"`
	Correct    int        `json:"correct"`
	PoisonRate float64    `json:"poison_rate"`
}

// DefaultPath is ~/.local/state/dnsdash/history.db, falling back to the
// working directory when no home directory is known.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dnsdash-history.db"
	}
	return filepath.Join(home, ".local", "state", "dnsdash", "history.db")
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	logger.Debug("history store opened", zap.String("path", path))
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Record(ctx context.Context, mode model.Mode, r model.Resolution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations(ts, mode, hostname, resolved_ip, resolver_ip, poisoned, correct) VALUES(?,?,?,?,?,?,?)`,
		s.now().UnixMilli(), string(mode), r.Hostname, r.ResolvedIP, r.ResolverIP, boolInt(r.IsPoisoned), boolInt(r.IsCorrect),
	)
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

// ObserveResolution records r, logging rather than returning failures so the
// store can be attached to the dashboard as an observer.
func (s *Store) ObserveResolution(mode model.Mode, r model.Resolution) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Record(ctx, mode, r); err != nil {
		s.logger.Warn("history write failed", zap.Error(err))
	}
}

// Summary aggregates observations per mode, ordered by mode name.
func (s *Store) Summary(ctx context.Context) ([]ModeSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, COUNT(*), COALESCE(SUM(poisoned), 0), COALESCE(SUM(correct), 0) FROM observations GROUP BY mode ORDER BY mode`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []ModeSummary
	for rows.Next() {
		var (
			mode    string
			summary ModeSummary
		)
		if err := rows.Scan(&mode, &summary.Total, &summary.Poisoned, &summary.Correct); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		summary.Mode = model.Mode(mode)
		if summary.Total > 0 {
			summary.PoisonRate = float64(summary.Poisoned) / float64(summary.Total)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
