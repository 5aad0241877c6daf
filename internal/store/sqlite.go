// Package store persists the last merged timeline window per target
// in a local SQLite database, so a timeline renders instantly from
// the snapshot while a fresh load runs against the network.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/crm-timeline/internal/model"
)

// Store is the snapshot persistence interface.
type Store interface {
	// ReplaceSnapshot atomically replaces the stored window for one
	// target with the given records.
	ReplaceSnapshot(ctx context.Context, target model.Target, records []*model.TimelineRecord) error

	// GetSnapshot returns the stored window for one target, sort
	// date descending. An unknown target yields an empty slice.
	GetSnapshot(ctx context.Context, kind model.TargetKind, id string) ([]*model.TimelineRecord, error)
}

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceSnapshot replaces the stored window for a target inside one
// transaction.
func (s *SQLiteStore) ReplaceSnapshot(
	ctx context.Context,
	target model.Target,
	records []*model.TimelineRecord,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		"DELETE FROM timeline_records WHERE target_kind = ? AND target_id = ?",
		string(target.Kind), target.ID,
	)
	if err != nil {
		return fmt.Errorf("clearing snapshot for %s %s: %w", target.Kind, target.ID, err)
	}

	const query = `
		INSERT INTO timeline_records (
			target_kind, target_id, kind, id,
			sort_date, is_pinned, payload, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", rec.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			string(target.Kind), target.ID, string(rec.Kind), rec.ID,
			rec.SortDate.UTC(), rec.IsPinned, string(payload), now,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetSnapshot loads the stored window for a target.
func (s *SQLiteStore) GetSnapshot(
	ctx context.Context,
	kind model.TargetKind,
	id string,
) ([]*model.TimelineRecord, error) {
	var rows []struct {
		Payload string `db:"payload"`
	}

	err := s.db.SelectContext(ctx, &rows, `
		SELECT payload FROM timeline_records
		WHERE target_kind = ? AND target_id = ?
		ORDER BY sort_date DESC`,
		string(kind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s %s: %w", kind, id, err)
	}

	records := make([]*model.TimelineRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.TimelineRecord
		if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling snapshot record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, nil
}
