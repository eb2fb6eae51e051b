package clinic

import "time"

// EventType names something that happened inside the engine.
type EventType string

const (
	EventCaseGenerated     EventType = "case_generated"
	EventPatientCalled     EventType = "patient_called"
	EventTestRun           EventType = "test_run"
	EventDiagnosisScored   EventType = "diagnosis_scored"
	EventTreatmentFinished EventType = "treatment_finished"
	EventRejected          EventType = "rejected"
)

// Event is delivered to observers after an engine operation. Only the fields
// relevant to Type are set.
type Event struct {
	Type       EventType         `json:"type"`
	SessionID  string            `json:"session_id"`
	CaseID     string            `json:"case_id,omitempty"`
	Patient    *Waiting          `json:"patient,omitempty"`
	TestID     string            `json:"test_id,omitempty"`
	Result     *TestResult       `json:"result,omitempty"`
	Outcome    *DiagnosisOutcome `json:"outcome,omitempty"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message,omitempty"`
	Money      int               `json:"money"`
	Reputation int               `json:"reputation"`
	Time       time.Time         `json:"time"`
}

// Observer receives engine events synchronously on the caller's goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
