package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DefaultKeepBackups is how many previous values SQLiteSlot keeps per key.
const DefaultKeepBackups = 5

// Backup is a previous value of a slot.
type Backup struct {
	ID        int64     `db:"id"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLiteSlot implements Slot on top of a local SQLite database.
type SQLiteSlot struct {
	db   *sqlx.DB
	path string
	keep int
}

// NewSQLiteSlot opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteSlot(dbPath string) (*SQLiteSlot, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a fresh database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteSlot{db: db, path: dbPath, keep: DefaultKeepBackups}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file the slot was opened with.
func (s *SQLiteSlot) Path() string {
	return s.path
}

// SetKeepBackups changes how many previous values are retained per key.
// Zero disables backups.
func (s *SQLiteSlot) SetKeepBackups(n int) {
	if n < 0 {
		n = 0
	}
	s.keep = n
}

// Close closes the underlying database connection.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteSlot) runMigrations() error {
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

// Get returns the value stored under key.
func (s *SQLiteSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM slots WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set replaces the value under key. The previous value, if any, is copied to
// the backup table first.
func (s *SQLiteSlot) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.keep > 0 {
		if err := s.backup(ctx, tx, key, string(value)); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}

	return tx.Commit()
}

func (s *SQLiteSlot) backup(ctx context.Context, tx *sqlx.Tx, key, next string) error {
	var prev string
	err := tx.GetContext(ctx, &prev, "SELECT value FROM slots WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && prev == next) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading slot %s for backup: %w", key, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO slot_backups (key, value, created_at) VALUES (?, ?, ?)",
		key, prev, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("backing up slot %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM slot_backups
		WHERE key = ? AND id NOT IN (
			SELECT id FROM slot_backups WHERE key = ? ORDER BY id DESC LIMIT ?
		)`,
		key, key, s.keep,
	)
	if err != nil {
		return fmt.Errorf("pruning backups of slot %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Backups are kept.
func (s *SQLiteSlot) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}

// Backups lists the retained previous values of key, newest first.
func (s *SQLiteSlot) Backups(ctx context.Context, key string) ([]Backup, error) {
	var backups []Backup
	err := s.db.SelectContext(ctx, &backups,
		"SELECT id, key, value, created_at FROM slot_backups WHERE key = ? ORDER BY id DESC",
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("listing backups of slot %s: %w", key, err)
	}
	return backups, nil
}

// Restore moves the newest backup of key back into the slot. It returns
// ErrSlotEmpty when no backup exists.
func (s *SQLiteSlot) Restore(ctx context.Context, key string) (Backup, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Backup{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var b Backup
	err = tx.GetContext(ctx, &b,
		"SELECT id, key, value, created_at FROM slot_backups WHERE key = ? ORDER BY id DESC LIMIT 1",
		key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Backup{}, ErrSlotEmpty
	}
	if err != nil {
		return Backup{}, fmt.Errorf("reading backup of slot %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, b.Value, time.Now().UTC(),
	)
	if err != nil {
		return Backup{}, fmt.Errorf("restoring slot %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM slot_backups WHERE id = ?", b.ID); err != nil {
		return Backup{}, fmt.Errorf("dropping restored backup %d: %w", b.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return Backup{}, fmt.Errorf("committing restore of slot %s: %w", key, err)
	}
	return b, nil
}
