// Package ledger stores the history of scored diagnoses. It is an append-only
// record for statistics and export; sessions are never restored from it.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

// Record is one scored diagnosis.
type Record struct {
	ID                int64     `json:"id,omitempty"`
	SessionID         string    `json:"session_id"`
	CaseID            string    `json:"case_id"`
	Owner             string    `json:"owner"`
	PetName           string    `json:"pet_name"`
	Species           string    `json:"species"`
	ActualDiseaseID   string    `json:"actual_disease_id"`
	SelectedDiseaseID string    `json:"selected_disease_id"`
	Correct           bool      `json:"correct"`
	TestsUsed         int       `json:"tests_used"`
	MoneyDelta        int       `json:"money_delta"`
	ReputationDelta   int       `json:"reputation_delta"`
	CreatedAt         time.Time `json:"created_at"`
}

// DiseaseStats aggregates records by the actual disease.
type DiseaseStats struct {
	DiseaseID string  `json:"disease_id"`
	Total     int64   `json:"total"`
	Correct   int64   `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// Stats summarises the whole ledger.
type Stats struct {
	Total        int64          `json:"total"`
	Correct      int64          `json:"correct"`
	Accuracy     float64        `json:"accuracy"`
	AvgTestsUsed float64        `json:"avg_tests_used"`
	ByDisease    []DiseaseStats `json:"by_disease"`
}

// Store defines the interface for ledger storage operations.
type Store interface {
	// Save stores a record. A record for the same case id is replaced.
	Save(ctx context.Context, record *Record) error

	// Get returns the record for a case, or nil when there is none.
	Get(ctx context.Context, caseID string) (*Record, error)

	// List returns records newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Stats aggregates accuracy overall and per disease.
	Stats(ctx context.Context) (*Stats, error)

	// ExportJSON exports all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports records from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// NewRecord builds the ledger entry for a scored diagnosis.
func NewRecord(sessionID string, patient clinic.Waiting, outcome *clinic.DiagnosisOutcome) *Record {
	return &Record{
		SessionID:         sessionID,
		CaseID:            outcome.CaseID,
		Owner:             patient.Owner,
		PetName:           patient.PetName,
		Species:           string(patient.Species),
		ActualDiseaseID:   outcome.Actual.ID,
		SelectedDiseaseID: outcome.SelectedID,
		Correct:           outcome.Correct,
		TestsUsed:         outcome.TestsUsed,
		MoneyDelta:        outcome.MoneyDelta,
		ReputationDelta:   outcome.ReputationDelta,
		CreatedAt:         outcome.ScoredAt,
	}
}

func accuracy(correct, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// exportJSON writes every record from s.
func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importJSON saves every record not already present in s.
func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		existing, err := s.Get(ctx, rec.CaseID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		rec.ID = 0
		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
