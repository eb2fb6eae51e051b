// Package clinic is the veterinary clinic engine: it generates patient cases,
// simulates diagnostic tests against each case's hidden disease and scores
// diagnoses against the session's money and reputation.
//
// The engine is single-actor per session. Every operation receives the
// *SessionState it mutates; there is no package-level state.
package clinic

import (
	"encoding/json"
	"time"

	"github.com/EcliqseX/vetsim/internal/catalog"
)

// TestResult is the immutable outcome of one diagnostic test.
type TestResult struct {
	TestID    string    `json:"test_id"`
	Positive  bool      `json:"positive"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TestLog holds at most one result per test id, in the order the tests
// were first run. Re-running a test replaces its result in place.
type TestLog struct {
	order   []string
	results map[string]TestResult
}

// Record stores r under its test id, overwriting any earlier result.
func (l *TestLog) Record(r TestResult) {
	if l.results == nil {
		l.results = make(map[string]TestResult)
	}
	if _, exists := l.results[r.TestID]; !exists {
		l.order = append(l.order, r.TestID)
	}
	l.results[r.TestID] = r
}

// Get returns the result recorded for testID.
func (l *TestLog) Get(testID string) (TestResult, bool) {
	r, ok := l.results[testID]
	return r, ok
}

// Len is the number of distinct tests run.
func (l *TestLog) Len() int {
	return len(l.order)
}

// Results returns the recorded results in run order.
func (l *TestLog) Results() []TestResult {
	out := make([]TestResult, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.results[id])
	}
	return out
}

func (l TestLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Results())
}

func (l *TestLog) UnmarshalJSON(data []byte) error {
	var results []TestResult
	if err := json.Unmarshal(data, &results); err != nil {
		return err
	}
	*l = TestLog{}
	for _, r := range results {
		l.Record(r)
	}
	return nil
}

// Case is one patient encounter. Disease is the hidden ground truth and is
// shared with the catalog; it must never be modified through a Case.
type Case struct {
	ID               string            `json:"id"`
	Owner            string            `json:"owner"`
	PetName          string            `json:"pet_name"`
	Species          catalog.Species   `json:"species"`
	Disease          *catalog.Disease  `json:"-"`
	ObservedSymptoms []string          `json:"observed_symptoms"`
	Tests            TestLog           `json:"tests"`
	Diagnosis        *DiagnosisOutcome `json:"diagnosis,omitempty"`
	ArrivedAt        time.Time         `json:"arrived_at"`
}

// TestsUsed is the number of distinct tests run on the case.
func (c *Case) TestsUsed() int {
	return c.Tests.Len()
}

// Diagnosed reports whether a diagnosis has been scored for the case.
func (c *Case) Diagnosed() bool {
	return c.Diagnosis != nil
}

// Waiting is the public waiting-room view of a queued case.
type Waiting struct {
	CaseID  string          `json:"case_id"`
	Owner   string          `json:"owner"`
	PetName string          `json:"pet_name"`
	Species catalog.Species `json:"species"`
}

// Summary returns the waiting-room line for the case without its disease.
func (c *Case) Summary() Waiting {
	return Waiting{CaseID: c.ID, Owner: c.Owner, PetName: c.PetName, Species: c.Species}
}
