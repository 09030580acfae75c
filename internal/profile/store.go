// Package profile persists per-user state in SQLite: monthly income,
// tracked source files and free-form settings.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// ErrSettingNotFound is returned when a setting key has no value.
var ErrSettingNotFound = errors.New("setting not found")

const schema = `
CREATE TABLE IF NOT EXISTS profile (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tracked_files (
	file_id           TEXT PRIMARY KEY,
	filename          TEXT NOT NULL,
	transaction_count INTEGER NOT NULL,
	uploaded_at       TEXT NOT NULL
);
`

// Monetary values are stored as decimal strings. SQLite would happily take a
// float, and a float would happily lose cents.
const incomeKey = "monthly_income"

// Store is the SQLite-backed profile store. Safe for concurrent use; SQLite
// serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the profile database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Profile loads the full profile. A fresh database yields an empty profile,
// not an error.
func (s *Store) Profile(ctx context.Context) (domain.Profile, error) {
	p := domain.Profile{Settings: map[string]string{}}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM profile`)
	if err != nil {
		return p, fmt.Errorf("Profile: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return p, fmt.Errorf("Profile: %w", err)
		}
		if k == incomeKey {
			income, err := decimal.NewFromString(v)
			if err != nil {
				return p, fmt.Errorf("Profile: corrupt income %q: %w", v, err)
			}
			p.MonthlyIncome = income
			continue
		}
		p.Settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("Profile: %w", err)
	}

	files, err := s.TrackedFiles(ctx)
	if err != nil {
		return p, err
	}
	p.TrackedFiles = files
	return p, nil
}

// SetMonthlyIncome stores the user's monthly income.
func (s *Store) SetMonthlyIncome(ctx context.Context, income decimal.Decimal) error {
	if income.IsNegative() {
		return fmt.Errorf("SetMonthlyIncome: income must not be negative, got %s", income)
	}
	return s.setKey(ctx, incomeKey, income.String())
}

// SetSetting stores one free-form settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == incomeKey {
		return fmt.Errorf("SetSetting: %q is reserved, use SetMonthlyIncome", key)
	}
	return s.setKey(ctx, key, value)
}

// Setting loads one settings key, returning ErrSettingNotFound when unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM profile WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("Setting: %q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("Setting: %w", err)
	}
	return v, nil
}

func (s *Store) setKey(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("setKey: %q: %w", key, err)
	}
	return nil
}

// TrackFile records one ingested file. Re-tracking the same file id updates
// its row.
func (s *Store) TrackFile(ctx context.Context, f domain.TrackedFile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_files (file_id, filename, transaction_count, uploaded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET
			filename = excluded.filename,
			transaction_count = excluded.transaction_count,
			uploaded_at = excluded.uploaded_at`,
		f.FileID, f.Filename, f.TransactionCount, f.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("TrackFile: %s: %w", f.FileID, err)
	}
	return nil
}

// RemoveFile deletes a tracked file record. Removing an unknown id is a no-op.
func (s *Store) RemoveFile(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracked_files WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("RemoveFile: %s: %w", fileID, err)
	}
	return nil
}

// IsTracked reports whether a file id has already been ingested.
func (s *Store) IsTracked(ctx context.Context, fileID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_files WHERE file_id = ?`, fileID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("IsTracked: %s: %w", fileID, err)
	}
	return n > 0, nil
}

// TrackedFiles lists ingested files, most recent upload first.
func (s *Store) TrackedFiles(ctx context.Context) ([]domain.TrackedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, filename, transaction_count, uploaded_at
		 FROM tracked_files ORDER BY uploaded_at DESC, file_id`)
	if err != nil {
		return nil, fmt.Errorf("TrackedFiles: %w", err)
	}
	defer rows.Close()

	var files []domain.TrackedFile
	for rows.Next() {
		var f domain.TrackedFile
		var uploaded string
		if err := rows.Scan(&f.FileID, &f.Filename, &f.TransactionCount, &uploaded); err != nil {
			return nil, fmt.Errorf("TrackedFiles: %w", err)
		}
		t, err := time.Parse(time.RFC3339, uploaded)
		if err != nil {
			return nil, fmt.Errorf("TrackedFiles: corrupt timestamp %q: %w", uploaded, err)
		}
		f.UploadedAt = t
		files = append(files, f)
	}
	return files, rows.Err()
}
