package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite ledger store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// newSQLiteStoreWithDB wraps an already opened database without touching
// the schema.
func newSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

const recordColumns = `id, session_id, case_id, owner, pet_name, species,
	actual_disease_id, selected_disease_id, correct, tests_used,
	money_delta, reputation_delta, created_at`

// scanRecord scans a row into a Record.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	err := s.Scan(
		&rec.ID, &rec.SessionID, &rec.CaseID, &rec.Owner, &rec.PetName, &rec.Species,
		&rec.ActualDiseaseID, &rec.SelectedDiseaseID, &rec.Correct, &rec.TestsUsed,
		&rec.MoneyDelta, &rec.ReputationDelta, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS diagnoses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		case_id TEXT NOT NULL UNIQUE,
		owner TEXT DEFAULT '',
		pet_name TEXT DEFAULT '',
		species TEXT NOT NULL,
		actual_disease_id TEXT NOT NULL,
		selected_disease_id TEXT NOT NULL,
		correct INTEGER NOT NULL DEFAULT 0,
		tests_used INTEGER NOT NULL DEFAULT 0,
		money_delta INTEGER NOT NULL DEFAULT 0,
		reputation_delta INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_diagnoses_session ON diagnoses(session_id);
	CREATE INDEX IF NOT EXISTS idx_diagnoses_actual ON diagnoses(actual_disease_id);
	CREATE INDEX IF NOT EXISTS idx_diagnoses_created_at ON diagnoses(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a record, replacing any record for the same case.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM diagnoses WHERE case_id = ?", rec.CaseID,
	).Scan(&existingID)

	if err == nil {
		rec.ID = existingID
		_, err = s.db.ExecContext(ctx, `
			UPDATE diagnoses SET
				session_id = ?,
				owner = ?,
				pet_name = ?,
				species = ?,
				actual_disease_id = ?,
				selected_disease_id = ?,
				correct = ?,
				tests_used = ?,
				money_delta = ?,
				reputation_delta = ?,
				created_at = ?
			WHERE id = ?
		`,
			rec.SessionID, rec.Owner, rec.PetName, rec.Species,
			rec.ActualDiseaseID, rec.SelectedDiseaseID, rec.Correct, rec.TestsUsed,
			rec.MoneyDelta, rec.ReputationDelta, rec.CreatedAt,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnoses (
			session_id, case_id, owner, pet_name, species,
			actual_disease_id, selected_disease_id, correct, tests_used,
			money_delta, reputation_delta, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.SessionID, rec.CaseID, rec.Owner, rec.PetName, rec.Species,
		rec.ActualDiseaseID, rec.SelectedDiseaseID, rec.Correct, rec.TestsUsed,
		rec.MoneyDelta, rec.ReputationDelta, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	rec.ID = id

	return nil
}

// Get returns the record for a case.
func (s *SQLiteStore) Get(ctx context.Context, caseID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM diagnoses WHERE case_id = ? LIMIT 1", caseID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns records newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM diagnoses ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnoses").Scan(&count)
	return count, err
}

// Stats aggregates accuracy overall and per disease.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(correct), 0), AVG(tests_used) FROM diagnoses
	`).Scan(&stats.Total, &stats.Correct, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	stats.Accuracy = accuracy(stats.Correct, stats.Total)
	stats.AvgTestsUsed = avg.Float64

	rows, err := s.db.QueryContext(ctx, `
		SELECT actual_disease_id, COUNT(*), COALESCE(SUM(correct), 0)
		FROM diagnoses
		GROUP BY actual_disease_id
		ORDER BY actual_disease_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by disease: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ds DiseaseStats
		if err := rows.Scan(&ds.DiseaseID, &ds.Total, &ds.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ds.Accuracy = accuracy(ds.Correct, ds.Total)
		stats.ByDisease = append(stats.ByDisease, ds)
	}
	return stats, rows.Err()
}

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
