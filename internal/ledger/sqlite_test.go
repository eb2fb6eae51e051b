package ledger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleRecord(caseID, diseaseID string, correct bool, testsUsed int, at time.Time) *Record {
	selected := diseaseID
	money, rep := 50, 5
	if !correct {
		selected = "mange"
		money, rep = -15, -8
	}
	return &Record{
		SessionID:         "session-1",
		CaseID:            caseID,
		Owner:             "Alex",
		PetName:           "Buddy",
		Species:           "Dog",
		ActualDiseaseID:   diseaseID,
		SelectedDiseaseID: selected,
		Correct:           correct,
		TestsUsed:         testsUsed,
		MoneyDelta:        money,
		ReputationDelta:   rep,
		CreatedAt:         at,
	}
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rec := sampleRecord("case-1", "parvo", true, 2, baseTime)

	// Act
	err := store.Save(ctx, rec)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, rec.ID, "ID should be assigned")

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "parvo", got.ActualDiseaseID)
	assert.Equal(t, "parvo", got.SelectedDiseaseID)
	assert.True(t, got.Correct)
	assert.Equal(t, 2, got.TestsUsed)
	assert.Equal(t, 50, got.MoneyDelta)
	assert.Equal(t, "Buddy", got.PetName)
	assert.True(t, baseTime.Equal(got.CreatedAt), "created_at round trips: %v", got.CreatedAt)
}

func TestSQLiteStore_SaveSetsCreatedAt(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	rec := sampleRecord("case-1", "parvo", true, 0, time.Time{})
	require.NoError(t, store.Save(context.Background(), rec))

	assert.False(t, rec.CreatedAt.IsZero())
}

func TestSQLiteStore_SaveReplacesSameCase(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := sampleRecord("case-1", "parvo", true, 1, baseTime)
	require.NoError(t, store.Save(ctx, first))

	second := sampleRecord("case-1", "parvo", false, 3, baseTime.Add(time.Minute))
	require.NoError(t, store.Save(ctx, second))

	assert.Equal(t, first.ID, second.ID, "same case keeps its row")
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.False(t, got.Correct)
	assert.Equal(t, 3, got.TestsUsed)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_List(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for i, id := range []string{"case-a", "case-b", "case-c"} {
		require.NoError(t, store.Save(ctx, sampleRecord(id, "parvo", true, 0, baseTime.Add(time.Duration(i)*time.Minute))))
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{name: "all newest first", limit: 10, offset: 0, want: []string{"case-c", "case-b", "case-a"}},
		{name: "first page", limit: 2, offset: 0, want: []string{"case-c", "case-b"}},
		{name: "second page", limit: 2, offset: 2, want: []string{"case-a"}},
		{name: "past the end", limit: 2, offset: 5, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := store.List(ctx, tt.limit, tt.offset)
			require.NoError(t, err)

			var ids []string
			for _, r := range recs {
				ids = append(ids, r.CaseID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecord("c1", "parvo", true, 1, baseTime)))
	require.NoError(t, store.Save(ctx, sampleRecord("c2", "parvo", false, 3, baseTime)))
	require.NoError(t, store.Save(ctx, sampleRecord("c3", "uti", true, 2, baseTime)))
	require.NoError(t, store.Save(ctx, sampleRecord("c4", "diabetes", true, 0, baseTime)))

	// Act
	stats, err := store.Stats(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Correct)
	assert.InDelta(t, 0.75, stats.Accuracy, 1e-9)
	assert.InDelta(t, 1.5, stats.AvgTestsUsed, 1e-9)
	assert.Equal(t, []DiseaseStats{
		{DiseaseID: "diabetes", Total: 1, Correct: 1, Accuracy: 1},
		{DiseaseID: "parvo", Total: 2, Correct: 1, Accuracy: 0.5},
		{DiseaseID: "uti", Total: 1, Correct: 1, Accuracy: 1},
	}, stats.ByDisease)
}

func TestSQLiteStore_StatsEmpty(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	stats, err := store.Stats(context.Background())

	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Accuracy)
	assert.Zero(t, stats.AvgTestsUsed)
	assert.Empty(t, stats.ByDisease)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, sampleRecord("c1", "parvo", true, 1, baseTime)))
	require.NoError(t, source.Save(ctx, sampleRecord("c2", "mange", false, 2, baseTime.Add(time.Minute))))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, sampleRecord("c1", "parvo", true, 1, baseTime)))

	// Act
	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))

	assert.ErrorContains(t, err, "failed to decode JSON")
}
