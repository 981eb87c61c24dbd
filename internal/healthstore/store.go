// Package healthstore is the on-device history store the Provider Adapter
// reads from: a SQLite database of raw health samples with anchor-cursor
// paginated quantity queries and single-range category queries.
package healthstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/claude/glucosync/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite sample database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sample database at the given path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening health store: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating health store: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Page is one page of an anchor-cursor quantity query. NextCursor is zero
// when the store has no rows past this page.
type Page struct {
	Samples    []models.HealthSample
	NextCursor int64
}

// QuantityPage returns the next page of samples for a quantity kind within
// [start, end), ordered by insertion, starting after the anchor cursor.
func (s *Store) QuantityPage(ctx context.Context, kind models.SampleKind, start, end time.Time, cursor int64, limit int) (*Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, value, start_ms, end_ms, source_id
		   FROM samples
		  WHERE kind = ? AND start_ms >= ? AND start_ms < ? AND id > ?
		  ORDER BY id
		  LIMIT ?`,
		string(kind), start.UnixMilli(), end.UnixMilli(), cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s page: %w", kind, err)
	}
	defer rows.Close()

	page := &Page{}
	var lastID int64
	for rows.Next() {
		var (
			id               int64
			value            float64
			startMS, endMS   int64
			sourceID         string
		)
		if err := rows.Scan(&id, &value, &startMS, &endMS, &sourceID); err != nil {
			return nil, fmt.Errorf("scanning %s sample: %w", kind, err)
		}
		lastID = id
		page.Samples = append(page.Samples, models.HealthSample{
			Kind:      kind,
			Value:     value,
			StartTime: time.UnixMilli(startMS),
			EndTime:   time.UnixMilli(endMS),
			SourceID:  sourceID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s page: %w", kind, err)
	}

	if len(page.Samples) == limit {
		page.NextCursor = lastID
	}
	return page, nil
}

// CategoryRange returns every sample of a category kind within [start, end)
// in one query. Category kinds have no anchor pagination.
func (s *Store) CategoryRange(ctx context.Context, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, start_ms, end_ms, source_id
		   FROM samples
		  WHERE kind = ? AND start_ms >= ? AND start_ms < ?
		  ORDER BY start_ms`,
		string(kind), start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s range: %w", kind, err)
	}
	defer rows.Close()

	var samples []models.HealthSample
	for rows.Next() {
		var (
			value          float64
			startMS, endMS int64
			sourceID       string
		)
		if err := rows.Scan(&value, &startMS, &endMS, &sourceID); err != nil {
			return nil, fmt.Errorf("scanning %s sample: %w", kind, err)
		}
		samples = append(samples, models.HealthSample{
			Kind:      kind,
			Value:     value,
			StartTime: time.UnixMilli(startMS),
			EndTime:   time.UnixMilli(endMS),
			SourceID:  sourceID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s range: %w", kind, err)
	}
	return samples, nil
}

// Insert stores samples, deriving a source ID when the caller left it
// empty. Duplicate (kind, source_id) rows are skipped. Returns the number
// of rows actually inserted.
func (s *Store) Insert(ctx context.Context, samples []models.HealthSample) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var inserted int64
	for _, sm := range samples {
		sourceID := sm.SourceID
		if sourceID == "" {
			sourceID = models.DeriveSourceID(sm.StartTime, sm.EndTime, sm.Value)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO samples (kind, value, start_ms, end_ms, source_id)
			 VALUES (?, ?, ?, ?, ?)`,
			string(sm.Kind), sm.Value, sm.StartTime.UnixMilli(), sm.EndTime.UnixMilli(), sourceID,
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting %s sample: %w", sm.Kind, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("committing insert: %w", err)
	}
	return inserted, nil
}

// MarkSynced records that the given source IDs were transmitted. This is
// bookkeeping only; sync decisions never read it.
func (s *Store) MarkSynced(ctx context.Context, sourceIDs []string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning mark-synced: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range sourceIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE samples SET synced_at = ? WHERE source_id = ?`, at, id); err != nil {
			return fmt.Errorf("marking %s synced: %w", id, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored samples across all kinds.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting samples: %w", err)
	}
	return n, nil
}
