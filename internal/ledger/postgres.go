package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL ledger store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Save stores or replaces the record for a case.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO diagnoses (
			session_id, case_id, owner, pet_name, species,
			actual_disease_id, selected_disease_id, correct, tests_used,
			money_delta, reputation_delta, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (case_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			owner = EXCLUDED.owner,
			pet_name = EXCLUDED.pet_name,
			species = EXCLUDED.species,
			actual_disease_id = EXCLUDED.actual_disease_id,
			selected_disease_id = EXCLUDED.selected_disease_id,
			correct = EXCLUDED.correct,
			tests_used = EXCLUDED.tests_used,
			money_delta = EXCLUDED.money_delta,
			reputation_delta = EXCLUDED.reputation_delta,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		rec.SessionID, rec.CaseID, rec.Owner, rec.PetName, rec.Species,
		rec.ActualDiseaseID, rec.SelectedDiseaseID, rec.Correct, rec.TestsUsed,
		rec.MoneyDelta, rec.ReputationDelta, rec.CreatedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get returns the record for a case.
func (s *PostgresStore) Get(ctx context.Context, caseID string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM diagnoses WHERE case_id = $1 LIMIT 1", caseID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// List returns records newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+recordColumns+" FROM diagnoses ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM diagnoses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Stats aggregates accuracy overall and per disease.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE correct),
			COALESCE(AVG(tests_used), 0)::float8
		FROM diagnoses
	`).Scan(&stats.Total, &stats.Correct, &stats.AvgTestsUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	stats.Accuracy = accuracy(stats.Correct, stats.Total)

	rows, err := s.pool.Query(ctx, `
		SELECT actual_disease_id, COUNT(*), COUNT(*) FILTER (WHERE correct)
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
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}
