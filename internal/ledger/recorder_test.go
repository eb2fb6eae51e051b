package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/clinic"
	"github.com/EcliqseX/vetsim/internal/random"
)

// fakeStore records saves and optionally fails them.
type fakeStore struct {
	Store

	mu    sync.Mutex
	saved []*Record
	err   error
}

func (f *fakeStore) Save(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("save called without a deadline")
	}
	f.saved = append(f.saved, rec)
	return nil
}

func scoredEvent(t *testing.T) clinic.Event {
	t.Helper()
	parvo, ok := catalog.Default().Disease("parvo")
	require.True(t, ok)
	return clinic.Event{
		Type:      clinic.EventDiagnosisScored,
		SessionID: "session-1",
		CaseID:    "case-1",
		Patient:   &clinic.Waiting{CaseID: "case-1", Owner: "Alex", PetName: "Buddy", Species: catalog.Dog},
		Outcome: &clinic.DiagnosisOutcome{
			CaseID:          "case-1",
			Correct:         true,
			Actual:          parvo,
			Selected:        parvo,
			SelectedID:      "parvo",
			MoneyDelta:      95,
			ReputationDelta: 5,
			TestsUsed:       1,
			ScoredAt:        baseTime,
		},
	}
}

func TestRecorder_SavesScoredDiagnoses(t *testing.T) {
	store := &fakeStore{}
	logger, _ := test.NewNullLogger()
	rec := NewRecorder(store, DefaultRecorderConfig(), logger)

	// Act
	rec.Observe(scoredEvent(t))
	rec.Observe(clinic.Event{Type: clinic.EventTestRun, SessionID: "session-1", CaseID: "case-1"})
	rec.Observe(clinic.Event{Type: clinic.EventDiagnosisScored, SessionID: "session-1"})

	// Assert
	require.Len(t, store.saved, 1)
	got := store.saved[0]
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "case-1", got.CaseID)
	assert.Equal(t, "Dog", got.Species)
	assert.Equal(t, "parvo", got.ActualDiseaseID)
	assert.Equal(t, "parvo", got.SelectedDiseaseID)
	assert.True(t, got.Correct)
	assert.Equal(t, 95, got.MoneyDelta)
	assert.Equal(t, baseTime, got.CreatedAt)
}

func TestRecorder_FailuresAreLoggedAndTripTheBreaker(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	logger, hook := test.NewNullLogger()
	rec := NewRecorder(store, RecorderConfig{WriteTimeout: time.Second, BreakerTimeout: time.Minute, BreakerRatio: 0.6}, logger)

	for range 3 {
		rec.Observe(scoredEvent(t))
	}

	assert.Equal(t, gobreaker.StateOpen, rec.State())

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Failed to record diagnosis" {
			warnings++
		}
	}
	assert.Equal(t, 3, warnings)

	ev := scoredEvent(t)
	err := rec.Record(context.Background(), ev.SessionID, *ev.Patient, ev.Outcome)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestRecorder_WithEngine(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	logger, _ := test.NewNullLogger()
	recorder := NewRecorder(store, DefaultRecorderConfig(), logger)

	engine, err := clinic.NewEngine(catalog.Default(), random.Fixed{Float: 0.99},
		clinic.WithLogger(logger), clinic.WithObserver(recorder))
	require.NoError(t, err)

	state := engine.InitSession()
	c, err := engine.AdvanceQueue(state)
	require.NoError(t, err)
	_, err = engine.ScoreDiagnosis(state, c.Disease.ID)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.ID, got.SessionID)
	assert.Equal(t, c.PetName, got.PetName)
	assert.True(t, got.Correct)
	assert.Equal(t, 0, got.TestsUsed)
}
