// Package metrics exposes Prometheus metrics for the evaluation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evaluator"

// Components reported in call duration and failure metrics.
const (
	ComponentSandbox  = "sandbox"
	ComponentReviewer = "reviewer"
	ComponentDetector = "detector"
	ComponentStore    = "store"
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	TestResultPassed  = "passed"
	TestResultFailed  = "failed"
	TestResultErrored = "errored"
)

type Metrics struct {
	submissions        *prometheus.CounterVec
	testCases          *prometheus.CounterVec
	externalCalls      *prometheus.HistogramVec
	enrichmentFailures *prometheus.CounterVec
	inflight           prometheus.Gauge
	busyWorkers        prometheus.Gauge
	totalWorkers       prometheus.Gauge
}

// New registers all metrics on the given registerer.
func New(registry prometheus.Registerer) *Metrics {
	auto := promauto.With(registry)

	return &Metrics{
		submissions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of submissions by terminal status",
		}, []string{"status"}),
		testCases: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_cases_total",
			Help:      "Total number of executed test cases by result",
		}, []string{"result"}),
		externalCalls: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Duration of calls to external collaborators",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "outcome"}),
		enrichmentFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Review and detection calls that failed and were omitted",
		}, []string{"component"}),
		inflight: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_submissions",
			Help:      "Submissions currently being evaluated",
		}),
		busyWorkers: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_workers",
			Help:      "Queue workers currently processing a task",
		}),
		totalWorkers: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_workers",
			Help:      "Size of the queue worker pool",
		}),
	}
}

// NewNop returns metrics registered on a private registry, for tests and
// callers that do not export metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) SubmissionFinished(status string) {
	m.submissions.WithLabelValues(status).Inc()
}

func (m *Metrics) TestCaseFinished(result string) {
	m.testCases.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCall(component string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.externalCalls.WithLabelValues(component, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) EnrichmentFailed(component string) {
	m.enrichmentFailures.WithLabelValues(component).Inc()
}

func (m *Metrics) SubmissionStarted()  { m.inflight.Inc() }
func (m *Metrics) SubmissionReleased() { m.inflight.Dec() }

func (m *Metrics) SetWorkers(busy, total int) {
	m.busyWorkers.Set(float64(busy))
	m.totalWorkers.Set(float64(total))
}
