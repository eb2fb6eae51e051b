package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

// RecorderConfig tunes the breaker in front of the store.
type RecorderConfig struct {
	// WriteTimeout bounds a single Save.
	WriteTimeout time.Duration
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	// BreakerRatio is the failure ratio that trips the breaker.
	BreakerRatio float64
}

// DefaultRecorderConfig returns the recorder defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		WriteTimeout:   2 * time.Second,
		BreakerTimeout: 30 * time.Second,
		BreakerRatio:   0.6,
	}
}

// Recorder is a clinic.Observer that writes every scored diagnosis to a
// Store. Writes go through a circuit breaker; a failing ledger never fails
// the game, it only logs.
type Recorder struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *logrus.Logger
}

// NewRecorder wraps store in a circuit breaker.
func NewRecorder(store Store, cfg RecorderConfig, logger *logrus.Logger) *Recorder {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultRecorderConfig().WriteTimeout
	}
	if cfg.BreakerRatio <= 0 {
		cfg.BreakerRatio = DefaultRecorderConfig().BreakerRatio
	}

	r := &Recorder{store: store, timeout: cfg.WriteTimeout, log: logger}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.BreakerRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return r
}

// Observe implements clinic.Observer.
func (r *Recorder) Observe(ev clinic.Event) {
	if ev.Type != clinic.EventDiagnosisScored || ev.Outcome == nil || ev.Patient == nil {
		return
	}
	if err := r.Record(context.Background(), ev.SessionID, *ev.Patient, ev.Outcome); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"session_id": ev.SessionID,
			"case_id":    ev.CaseID,
		}).Warn("Failed to record diagnosis")
	}
}

// Record saves one outcome through the breaker.
func (r *Recorder) Record(ctx context.Context, sessionID string, patient clinic.Waiting, outcome *clinic.DiagnosisOutcome) error {
	rec := NewRecord(sessionID, patient, outcome)
	_, err := r.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return nil, r.store.Save(ctx, rec)
	})
	return err
}

// State reports the breaker state for health checks.
func (r *Recorder) State() gobreaker.State {
	return r.breaker.State()
}
