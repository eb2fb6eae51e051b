package clinic

import (
	"fmt"
	"time"

	"github.com/EcliqseX/vetsim/internal/catalog"
)

// Scoring constants.
const (
	CorrectReputation   = 5
	IncorrectReputation = -8
	IncorrectPenalty    = 15

	efficiencyTarget = 3
	efficiencyStep   = 5
)

// DiagnosisOutcome is the result of scoring one diagnosis.
type DiagnosisOutcome struct {
	CaseID          string            `json:"case_id"`
	Correct         bool              `json:"correct"`
	Actual          *catalog.Disease  `json:"actual"`
	Selected        *catalog.Disease  `json:"selected,omitempty"`
	SelectedID      string            `json:"selected_id"`
	MoneyDelta      int               `json:"money_delta"`
	ReputationDelta int               `json:"reputation_delta"`
	Treatment       catalog.Treatment `json:"treatment"`
	Corrective      bool              `json:"corrective"`
	TestsUsed       int               `json:"tests_used"`
	EfficiencyBonus int               `json:"efficiency_bonus"`
	ScoredAt        time.Time         `json:"scored_at"`
}

// EfficiencyBonus rewards diagnosing with fewer than three tests:
// 0 tests pays 15, 1 pays 10, 2 pays 5, three or more pay nothing.
func EfficiencyBonus(testsUsed int) int {
	return max(0, (efficiencyTarget-testsUsed)*efficiencyStep)
}

// Scorer compares a selected disease id to a case's ground truth.
type Scorer struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewScorer returns a Scorer resolving selections against cat.
func NewScorer(cat *catalog.Catalog) *Scorer {
	return &Scorer{catalog: cat, now: time.Now}
}

// Score applies the reward or penalty for diseaseID to state and attaches
// the outcome to c. The case stays current.
func (s *Scorer) Score(state *SessionState, c *Case, diseaseID string) (*DiagnosisOutcome, error) {
	if diseaseID == "" {
		return nil, ErrNoSelection
	}
	if c.Diagnosed() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDiagnosed, c.PetName)
	}
	if c.Disease == nil {
		panic(fmt.Sprintf("clinic: case %s has no disease", c.ID))
	}

	outcome := &DiagnosisOutcome{
		CaseID:     c.ID,
		Correct:    diseaseID == c.Disease.ID,
		Actual:     c.Disease,
		SelectedID: diseaseID,
		Treatment:  c.Disease.Treatment,
		TestsUsed:  c.TestsUsed(),
		ScoredAt:   s.now(),
	}
	if selected, ok := s.catalog.Disease(diseaseID); ok {
		outcome.Selected = selected
	}

	if outcome.Correct {
		outcome.EfficiencyBonus = EfficiencyBonus(outcome.TestsUsed)
		outcome.MoneyDelta = state.adjustMoney(c.Disease.Treatment.Reward + outcome.EfficiencyBonus)
		outcome.ReputationDelta = state.adjustReputation(CorrectReputation)
		state.Stats.Correct++
	} else {
		outcome.Corrective = true
		outcome.MoneyDelta = state.adjustMoney(-IncorrectPenalty)
		outcome.ReputationDelta = state.adjustReputation(IncorrectReputation)
		state.Stats.Incorrect++
	}

	c.Diagnosis = outcome
	return outcome, nil
}

// SelectedName is the display name of the selection, or the raw id when it
// does not resolve to a catalog disease.
func (o *DiagnosisOutcome) SelectedName() string {
	if o.Selected != nil {
		return o.Selected.Name
	}
	return o.SelectedID
}
