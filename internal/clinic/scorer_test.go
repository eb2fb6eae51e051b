package clinic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcliqseX/vetsim/internal/catalog"
)

func TestEfficiencyBonus(t *testing.T) {
	tests := []struct {
		testsUsed int
		want      int
	}{
		{0, 15},
		{1, 10},
		{2, 5},
		{3, 0},
		{4, 0},
		{10, 0},
	}

	prev := EfficiencyBonus(0)
	for _, tt := range tests {
		got := EfficiencyBonus(tt.testsUsed)
		assert.Equal(t, tt.want, got, "tests used %d", tt.testsUsed)
		assert.LessOrEqual(t, got, prev, "bonus must not increase with more tests")
		prev = got
	}
}

func recordTests(c *Case, ids ...string) {
	for _, id := range ids {
		c.Tests.Record(TestResult{TestID: id, Text: negativeText, Timestamp: testNow})
	}
}

func TestScorer_Score_CorrectNoTests(t *testing.T) {
	state := stateWithPatient(t, 100, 50, "parvo", catalog.Dog)
	scorer := NewScorer(catalog.Default())

	outcome, err := scorer.Score(state, state.Current, "parvo")

	require.NoError(t, err)
	assert.True(t, outcome.Correct)
	assert.False(t, outcome.Corrective)
	assert.Equal(t, 195, state.Money)
	assert.Equal(t, 55, state.Reputation)
	assert.Equal(t, 95, outcome.MoneyDelta)
	assert.Equal(t, 5, outcome.ReputationDelta)
	assert.Equal(t, 15, outcome.EfficiencyBonus)
	assert.Equal(t, "IV fluids + Antiemetic + Isolation", outcome.Treatment.Name)
	assert.Equal(t, "parvo", outcome.Actual.ID)
	require.NotNil(t, outcome.Selected)
	assert.Equal(t, "parvo", outcome.Selected.ID)
	assert.Same(t, outcome, state.Current.Diagnosis)
	assert.Equal(t, 1, state.Stats.Correct)
}

func TestScorer_Score_CorrectFourTests(t *testing.T) {
	state := stateWithPatient(t, 100, 50, "parvo", catalog.Dog)
	recordTests(state.Current, catalog.TestStool, catalog.TestBlood, catalog.TestXRay, catalog.TestFlea)

	outcome, err := NewScorer(catalog.Default()).Score(state, state.Current, "parvo")

	require.NoError(t, err)
	assert.Equal(t, 180, state.Money)
	assert.Equal(t, 55, state.Reputation)
	assert.Equal(t, 4, outcome.TestsUsed)
	assert.Zero(t, outcome.EfficiencyBonus)
}

func TestScorer_Score_ReputationCapped(t *testing.T) {
	state := stateWithPatient(t, 0, 98, "mange", catalog.Cat)

	outcome, err := NewScorer(catalog.Default()).Score(state, state.Current, "mange")

	require.NoError(t, err)
	assert.Equal(t, MaxReputation, state.Reputation)
	assert.Equal(t, 2, outcome.ReputationDelta, "delta reports what was applied")
	assert.Equal(t, 55, state.Money)
}

func TestScorer_Score_Incorrect(t *testing.T) {
	tests := []struct {
		name           string
		money          int
		reputation     int
		selected       string
		wantMoney      int
		wantReputation int
		wantMoneyDelta int
		wantRepDelta   int
		wantSelected   bool
	}{
		{
			name: "penalty clamped at zero money", money: 10, reputation: 50, selected: "mange",
			wantMoney: 0, wantReputation: 42, wantMoneyDelta: -10, wantRepDelta: -8, wantSelected: true,
		},
		{
			name: "full penalty", money: 100, reputation: 50, selected: "uti",
			wantMoney: 85, wantReputation: 42, wantMoneyDelta: -15, wantRepDelta: -8, wantSelected: true,
		},
		{
			name: "reputation floored at zero", money: 100, reputation: 3, selected: "diabetes",
			wantMoney: 85, wantReputation: 0, wantMoneyDelta: -15, wantRepDelta: -3, wantSelected: true,
		},
		{
			name: "unresolvable selection", money: 100, reputation: 50, selected: "rabies",
			wantMoney: 85, wantReputation: 42, wantMoneyDelta: -15, wantRepDelta: -8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateWithPatient(t, tt.money, tt.reputation, "parvo", catalog.Dog)

			outcome, err := NewScorer(catalog.Default()).Score(state, state.Current, tt.selected)

			require.NoError(t, err)
			assert.False(t, outcome.Correct)
			assert.True(t, outcome.Corrective)
			assert.Equal(t, tt.wantMoney, state.Money)
			assert.Equal(t, tt.wantReputation, state.Reputation)
			assert.Equal(t, tt.wantMoneyDelta, outcome.MoneyDelta)
			assert.Equal(t, tt.wantRepDelta, outcome.ReputationDelta)
			assert.Equal(t, "IV fluids + Antiemetic + Isolation", outcome.Treatment.Name, "corrective treatment is the actual disease's")
			assert.Equal(t, tt.wantSelected, outcome.Selected != nil)
			assert.Equal(t, tt.selected, outcome.SelectedID)
			assert.Equal(t, 1, state.Stats.Incorrect)
		})
	}
}

func TestScorer_Score_Rejections(t *testing.T) {
	t.Run("no selection", func(t *testing.T) {
		state := stateWithPatient(t, 100, 50, "parvo", catalog.Dog)

		_, err := NewScorer(catalog.Default()).Score(state, state.Current, "")

		require.ErrorIs(t, err, ErrNoSelection)
		assert.Equal(t, 100, state.Money)
		assert.Equal(t, 50, state.Reputation)
		assert.False(t, state.Current.Diagnosed())
	})

	t.Run("already diagnosed", func(t *testing.T) {
		state := stateWithPatient(t, 100, 50, "parvo", catalog.Dog)
		scorer := NewScorer(catalog.Default())
		_, err := scorer.Score(state, state.Current, "mange")
		require.NoError(t, err)

		_, err = scorer.Score(state, state.Current, "parvo")

		require.ErrorIs(t, err, ErrAlreadyDiagnosed)
		assert.Equal(t, 85, state.Money)
		assert.Equal(t, 42, state.Reputation)
		assert.False(t, state.Current.Diagnosis.Correct)
	})
}

func TestDiagnosisOutcome_SelectedName(t *testing.T) {
	resolved := &DiagnosisOutcome{Selected: mustDisease(t, "uti"), SelectedID: "uti"}
	unresolved := &DiagnosisOutcome{SelectedID: "rabies"}

	assert.Equal(t, "Urinary Tract Infection", resolved.SelectedName())
	assert.Equal(t, "rabies", unresolved.SelectedName())
}
