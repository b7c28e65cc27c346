package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for importd.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration      *prometheus.HistogramVec
	extractionDuration   prometheus.Histogram
	commitDuration       prometheus.Histogram
	externalErrors       *prometheus.CounterVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	sessionsStarted      prometheus.Counter
	questionsAsked       *prometheus.CounterVec
	importsTotal         *prometheus.CounterVec
	transactionsImported prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "importd_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		extractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "importd_extraction_duration_seconds",
				Help:    "Duration of document extraction calls.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		commitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "importd_commit_duration_seconds",
				Help:    "Duration of ledger batch inserts.",
				Buckets: prometheus.DefBuckets,
			},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importd_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importd_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importd_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		sessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "importd_sessions_started_total",
				Help: "Total import sessions created.",
			},
		),
		questionsAsked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importd_questions_asked_total",
				Help: "Total clarifying questions asked, by question id.",
			},
			[]string{"question"},
		),
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importd_imports_total",
				Help: "Total import commits by outcome.",
			},
			[]string{"status"},
		),
		transactionsImported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "importd_transactions_imported_total",
				Help: "Total ledger rows committed by imports.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an HTTP operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordExtractionDuration records one document extractor call.
func (m *Metrics) RecordExtractionDuration(d time.Duration) {
	m.extractionDuration.Observe(d.Seconds())
}

// RecordCommitDuration records one ledger batch insert.
func (m *Metrics) RecordCommitDuration(d time.Duration) {
	m.commitDuration.Observe(d.Seconds())
}

// IncrExternalError increments the external error counter for a service.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSessionStarted counts a new import session.
func (m *Metrics) IncrSessionStarted() {
	m.sessionsStarted.Inc()
}

// IncrQuestionAsked counts a clarifying question by id.
func (m *Metrics) IncrQuestionAsked(questionID string) {
	m.questionsAsked.WithLabelValues(questionID).Inc()
}

// IncrImport counts a commit outcome ("success" | "error").
func (m *Metrics) IncrImport(status string) {
	m.importsTotal.WithLabelValues(status).Inc()
}

// AddTransactionsImported adds the committed row count.
func (m *Metrics) AddTransactionsImported(n int) {
	m.transactionsImported.Add(float64(n))
}

// ImportSnapshot is the JSON shape of GET /v1/metrics/import.
type ImportSnapshot struct {
	SessionsStarted      int64   `json:"sessionsStarted"`
	ImportsSucceeded     int64   `json:"importsSucceeded"`
	ImportsFailed        int64   `json:"importsFailed"`
	TransactionsImported int64   `json:"transactionsImported"`
	ErrorRate            float64 `json:"errorRate"`
	CacheHitRate         float64 `json:"cacheHitRate"`
	Period               string  `json:"period"`
}

// GetImportSnapshot returns the current import counters as a JSON-friendly
// snapshot, for the devtools metrics endpoint.
func (m *Metrics) GetImportSnapshot() *ImportSnapshot {
	sucesso := getCounterValue(m.importsTotal, "success")
	falha := getCounterValue(m.importsTotal, "error")
	hits := getCounterValue(m.cacheHits, "refdata")
	misses := getCounterValue(m.cacheMisses, "refdata")

	errorRate := float64(0)
	if sucesso+falha > 0 {
		errorRate = falha / (sucesso + falha)
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &ImportSnapshot{
		SessionsStarted:      int64(counterValue(m.sessionsStarted)),
		ImportsSucceeded:     int64(sucesso),
		ImportsFailed:        int64(falha),
		TransactionsImported: int64(counterValue(m.transactionsImported)),
		ErrorRate:            errorRate,
		CacheHitRate:         cacheHitRate,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current value from a CounterVec for a label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}
