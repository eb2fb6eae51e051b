package clinic

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/random"
)

// Settings are the session economics the engine starts from.
type Settings struct {
	StartingMoney      int
	StartingReputation int
	InitialCases       int
	ReseedCases        int
}

// DefaultSettings returns the standard clinic opening: $100, reputation 50,
// five patients waiting and three more seeded whenever the queue runs dry.
func DefaultSettings() Settings {
	return Settings{
		StartingMoney:      100,
		StartingReputation: 50,
		InitialCases:       5,
		ReseedCases:        3,
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	if s.StartingMoney < 0 {
		return fmt.Errorf("starting money must be non-negative, got %d", s.StartingMoney)
	}
	if s.StartingReputation < MinReputation || s.StartingReputation > MaxReputation {
		return fmt.Errorf("starting reputation must be within [%d, %d], got %d", MinReputation, MaxReputation, s.StartingReputation)
	}
	if s.InitialCases < 0 {
		return fmt.Errorf("initial cases must be non-negative, got %d", s.InitialCases)
	}
	if s.ReseedCases < 1 {
		return fmt.Errorf("reseed cases must be at least 1, got %d", s.ReseedCases)
	}
	return nil
}

// Engine runs clinic sessions. It holds no session state of its own, so one
// Engine may serve many sessions as long as each SessionState is only used
// by one goroutine at a time.
type Engine struct {
	catalog   *catalog.Catalog
	generator *Generator
	simulator *Simulator
	scorer    *Scorer
	settings  Settings
	logger    *logrus.Logger
	now       func() time.Time
	newID     func() string

	mu        sync.RWMutex
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets the engine logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		e.logger = logger
		return nil
	}
}

// WithClock replaces time.Now for every timestamp the engine produces.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		e.now = now
		return nil
	}
}

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(e *Engine) error {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
		e.settings = s
		return nil
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(e *Engine) error {
		e.observers = append(e.observers, o)
		return nil
	}
}

// WithIDGenerator replaces the case id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) error {
		if newID == nil {
			return errors.New("id generator must not be nil")
		}
		e.newID = newID
		return nil
	}
}

// NewEngine builds an engine over cat drawing randomness from src.
func NewEngine(cat *catalog.Catalog, src random.Source, opts ...Option) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if src == nil {
		return nil, errors.New("random source is required")
	}

	e := &Engine{
		catalog:  cat,
		settings: DefaultSettings(),
		logger:   logrus.New(),
		now:      time.Now,
		newID:    newCaseID,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	e.generator = &Generator{catalog: cat, src: src, now: e.now, newID: e.newID}
	e.simulator = &Simulator{catalog: cat, src: src, now: e.now}
	e.scorer = &Scorer{catalog: cat, now: e.now}
	return e, nil
}

// Catalog returns the reference data the engine plays with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Settings returns the active session economics.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Subscribe adds an observer for every subsequent event.
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// InitSession opens a clinic with the starting money, reputation and
// waiting queue.
func (e *Engine) InitSession() *SessionState {
	now := e.now()
	state := &SessionState{
		ID:         uuid.NewString(),
		Money:      e.settings.StartingMoney,
		Reputation: e.settings.StartingReputation,
		Waiting:    make([]*Case, 0, e.settings.InitialCases),
		CreatedAt:  now,
	}
	e.seed(state, e.settings.InitialCases)
	state.logf(now, "Clinic opened. Good luck!")

	e.logger.WithFields(logrus.Fields{
		"session_id": state.ID,
		"money":      state.Money,
		"reputation": state.Reputation,
		"waiting":    len(state.Waiting),
	}).Info("Session opened")
	return state
}

// AdvanceQueue moves the head of the waiting queue into the exam room.
// An empty queue is reseeded and reported with ErrQueueEmpty; the caller
// may advance again to see one of the new arrivals.
func (e *Engine) AdvanceQueue(state *SessionState) (*Case, error) {
	if state.Current != nil {
		state.logf(e.now(), "You still have a patient. Finish them before calling the next.")
		return nil, e.reject(state, state.Current, ErrPatientAlreadyActive)
	}
	if len(state.Waiting) == 0 {
		e.seed(state, e.settings.ReseedCases)
		state.logf(e.now(), "No more customers. Seeded a few more.")
		return nil, e.reject(state, nil, ErrQueueEmpty)
	}

	next := state.Waiting[0]
	state.Waiting[0] = nil
	state.Waiting = state.Waiting[1:]
	state.Current = next
	state.logf(e.now(), "%s brought in %s the %s.", next.Owner, next.PetName, next.Species)

	e.logger.WithFields(logrus.Fields{
		"session_id": state.ID,
		"case_id":    next.ID,
		"species":    next.Species,
		"waiting":    len(state.Waiting),
	}).Debug("Patient called")
	e.emit(state, Event{Type: EventPatientCalled, CaseID: next.ID, Patient: patient(next)})
	return next, nil
}

// RunTest charges and runs testID on the current patient.
func (e *Engine) RunTest(state *SessionState, testID string) (TestResult, error) {
	c := state.Current
	if c == nil {
		state.logf(e.now(), "No current patient.")
		return TestResult{}, e.reject(state, nil, ErrNoCurrentCase)
	}

	result, err := e.simulator.Run(state, c, testID)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			state.logf(e.now(), "Not enough money to run the test.")
		} else {
			state.logf(e.now(), "%s.", capitalize(err.Error()))
		}
		return TestResult{}, e.reject(state, c, err)
	}

	def, _ := e.catalog.Test(testID)
	state.logf(result.Timestamp, "%s's %s: %s run (-$%d).", c.Owner, c.PetName, def.Name, def.Cost)

	e.logger.WithFields(logrus.Fields{
		"session_id": state.ID,
		"case_id":    c.ID,
		"test_id":    testID,
		"positive":   result.Positive,
		"money":      state.Money,
	}).Debug("Test run")
	e.emit(state, Event{Type: EventTestRun, CaseID: c.ID, TestID: testID, Result: &result})
	return result, nil
}

// ScoreDiagnosis scores diseaseID against the current patient's disease and
// applies the reward or penalty. The patient stays current until
// FinishTreatment.
func (e *Engine) ScoreDiagnosis(state *SessionState, diseaseID string) (*DiagnosisOutcome, error) {
	c := state.Current
	if c == nil {
		state.logf(e.now(), "No patient to diagnose.")
		return nil, e.reject(state, nil, ErrNoCurrentCase)
	}

	outcome, err := e.scorer.Score(state, c, diseaseID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSelection):
			state.logf(e.now(), "Select a diagnosis first.")
		case errors.Is(err, ErrAlreadyDiagnosed):
			state.logf(e.now(), "%s has already been diagnosed.", c.PetName)
		}
		return nil, e.reject(state, c, err)
	}

	if outcome.Correct {
		state.logf(outcome.ScoredAt, "Diagnosed %s with %s (correct). Earned $%d.", c.PetName, outcome.Actual.Name, outcome.MoneyDelta)
	} else {
		state.logf(outcome.ScoredAt, "Diagnosed %s incorrectly as %s. Actual: %s.", c.PetName, outcome.SelectedName(), outcome.Actual.Name)
	}

	e.logger.WithFields(logrus.Fields{
		"session_id":       state.ID,
		"case_id":          c.ID,
		"disease_id":       diseaseID,
		"correct":          outcome.Correct,
		"tests_used":       outcome.TestsUsed,
		"money_delta":      outcome.MoneyDelta,
		"reputation_delta": outcome.ReputationDelta,
	}).Info("Diagnosis scored")
	e.emit(state, Event{Type: EventDiagnosisScored, CaseID: c.ID, Patient: patient(c), Outcome: outcome})
	return outcome, nil
}

// FinishTreatment discharges the current patient and admits one new case to
// the waiting queue.
func (e *Engine) FinishTreatment(state *SessionState) error {
	c := state.Current
	if c == nil {
		state.logf(e.now(), "No patient to treat.")
		return e.reject(state, nil, ErrNoCurrentCase)
	}

	now := e.now()
	switch {
	case c.Diagnosis == nil:
		state.logf(now, "%s went home without a diagnosis.", c.PetName)
	case c.Diagnosis.Correct:
		state.logf(now, "Treatment given to %s. Pet is recovering.", c.PetName)
	default:
		state.logf(now, "Treatment given after incorrect diagnosis. Outcome mixed.")
	}

	state.Current = nil
	state.Stats.Treated++
	e.seed(state, 1)

	e.logger.WithFields(logrus.Fields{
		"session_id": state.ID,
		"case_id":    c.ID,
		"diagnosed":  c.Diagnosed(),
		"waiting":    len(state.Waiting),
	}).Debug("Treatment finished")
	e.emit(state, Event{Type: EventTreatmentFinished, CaseID: c.ID, Patient: patient(c), Outcome: c.Diagnosis})
	return nil
}

// seed appends n freshly generated cases to the waiting queue.
func (e *Engine) seed(state *SessionState, n int) {
	for range n {
		c := e.generator.Generate()
		state.Waiting = append(state.Waiting, c)
		e.emit(state, Event{Type: EventCaseGenerated, CaseID: c.ID, Patient: patient(c)})
	}
}

// reject reports err to observers and returns it unchanged.
func (e *Engine) reject(state *SessionState, c *Case, err error) error {
	ev := Event{Type: EventRejected, Message: err.Error()}
	if r, ok := AsRejection(err); ok {
		ev.Code = r.Code
	}
	if c != nil {
		ev.CaseID = c.ID
	}

	e.logger.WithFields(logrus.Fields{
		"session_id": state.ID,
		"case_id":    ev.CaseID,
		"code":       ev.Code,
	}).Info(err.Error())
	e.emit(state, ev)
	return err
}

func (e *Engine) emit(state *SessionState, ev Event) {
	ev.SessionID = state.ID
	ev.Money = state.Money
	ev.Reputation = state.Reputation
	ev.Time = e.now()

	e.mu.RLock()
	observers := e.observers
	e.mu.RUnlock()
	for _, o := range observers {
		o.Observe(ev)
	}
}

func patient(c *Case) *Waiting {
	w := c.Summary()
	return &w
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
