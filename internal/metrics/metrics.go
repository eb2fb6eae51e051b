// Package metrics exposes clinic and HTTP counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

const namespace = "vetsim"

// Metrics is a clinic.Observer that counts engine events, plus the HTTP
// request instruments used by the API middleware.
type Metrics struct {
	registry *prometheus.Registry

	casesGenerated prometheus.Counter
	patientsCalled prometheus.Counter
	testsRun       *prometheus.CounterVec
	diagnoses      *prometheus.CounterVec
	testsPerCase   prometheus.Histogram
	treatments     *prometheus.CounterVec
	rejections     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every instrument on a fresh registry. sessions, when not
// nil, backs the live session gauge.
func New(sessions func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: reg,
		casesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cases_generated_total",
			Help: "Patients added to waiting queues.",
		}),
		patientsCalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "patients_called_total",
			Help: "Patients moved into the exam room.",
		}),
		testsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tests_run_total",
			Help: "Diagnostic tests run, by test and result.",
		}, []string{"test", "result"}),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "diagnoses_total",
			Help: "Scored diagnoses, by actual disease and correctness.",
		}, []string{"disease", "result"}),
		testsPerCase: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tests_per_diagnosis",
			Help:    "Tests run before each diagnosis.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
		}),
		treatments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "treatments_total",
			Help: "Patients discharged, by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rejections_total",
			Help: "Rejected player actions, by code.",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.casesGenerated, m.patientsCalled, m.testsRun, m.diagnoses,
		m.testsPerCase, m.treatments, m.rejections,
		m.httpRequests, m.httpDuration,
	)
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_sessions",
			Help: "Sessions currently held by the server.",
		}, sessions))
	}
	return m
}

// Observe implements clinic.Observer.
func (m *Metrics) Observe(ev clinic.Event) {
	switch ev.Type {
	case clinic.EventCaseGenerated:
		m.casesGenerated.Inc()
	case clinic.EventPatientCalled:
		m.patientsCalled.Inc()
	case clinic.EventTestRun:
		result := "negative"
		if ev.Result != nil && ev.Result.Positive {
			result = "positive"
		}
		m.testsRun.WithLabelValues(ev.TestID, result).Inc()
	case clinic.EventDiagnosisScored:
		if ev.Outcome == nil {
			return
		}
		m.diagnoses.WithLabelValues(ev.Outcome.Actual.ID, correctness(ev.Outcome.Correct)).Inc()
		m.testsPerCase.Observe(float64(ev.Outcome.TestsUsed))
	case clinic.EventTreatmentFinished:
		outcome := "undiagnosed"
		if ev.Outcome != nil {
			outcome = correctness(ev.Outcome.Correct)
		}
		m.treatments.WithLabelValues(outcome).Inc()
	case clinic.EventRejected:
		m.rejections.WithLabelValues(ev.Code).Inc()
	}
}

func correctness(ok bool) string {
	if ok {
		return "correct"
	}
	return "incorrect"
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
