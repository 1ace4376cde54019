// v0
// internal/metrics/metrics.go

// Package metrics exposes the Prometheus collectors shared by the ledger,
// the Kafka surfaces and the HTTP API. Collectors live on a private registry
// so tests and embedding programs never collide with the default one.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	appendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_ledger_append_total",
		Help: "Ledger append attempts by record kind and result.",
	}, []string{"kind", "result"})
	chainLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modelmarket_ledger_chain_length",
		Help: "Number of committed ledger records.",
	})
	verifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "modelmarket_ledger_verify_duration_seconds",
		Help:    "Duration of full chain verification scans.",
		Buckets: prometheus.DefBuckets,
	})
	verifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_ledger_verify_total",
		Help: "Chain verification scans by outcome.",
	}, []string{"result"})
	rewardTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_rewards_distributed_total",
		Help: "Reward distribution attempts by result.",
	}, []string{"result"})
	rewardTokens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modelmarket_rewards_tokens_total",
		Help: "Tokens paid out through committed reward records.",
	})
	publishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_public_publish_total",
		Help: "Record publications to Kafka by result.",
	}, []string{"result"})
	publishLastError = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modelmarket_public_last_error_ts",
		Help: "Unix timestamp of the last publish failure.",
	})
	publishQueue = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modelmarket_public_queue_depth",
		Help: "Records waiting to be published.",
	})
	intentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_ingest_intents_total",
		Help: "Consumed intents by type and result.",
	}, []string{"type", "result"})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelmarket_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modelmarket_http_request_duration_seconds",
		Help:    "HTTP request durations by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "modelmarket_cb_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"target"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		appendTotal,
		chainLength,
		verifyDuration,
		verifyTotal,
		rewardTotal,
		rewardTokens,
		publishTotal,
		publishLastError,
		publishQueue,
		intentTotal,
		httpRequests,
		httpDuration,
		breakerState,
	)
}

// Registry returns the registry all collectors are attached to.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the exposition format for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveAppend counts an append attempt. result is "committed" or the rejecting stage.
func ObserveAppend(kind, result string) {
	appendTotal.WithLabelValues(label(kind), label(result)).Inc()
}

func SetChainLength(n int) {
	if n < 0 {
		n = 0
	}
	chainLength.Set(float64(n))
}

func ObserveVerify(d time.Duration, valid bool) {
	verifyDuration.Observe(d.Seconds())
	if valid {
		verifyTotal.WithLabelValues("valid").Inc()
		return
	}
	verifyTotal.WithLabelValues("invalid").Inc()
}

// ObserveReward records a distribution attempt and, on success, the paid amount.
func ObserveReward(result string, amount float64) {
	rewardTotal.WithLabelValues(label(result)).Inc()
	if amount > 0 {
		rewardTokens.Add(amount)
	}
}

// IncPublicPublish increments the publish counter for the provided result label.
func IncPublicPublish(result string) {
	publishTotal.WithLabelValues(label(result)).Inc()
}

// SetPublicLastError records the unix timestamp of the last publish failure.
func SetPublicLastError(ts time.Time) {
	if ts.IsZero() {
		publishLastError.Set(0)
		return
	}
	publishLastError.Set(float64(ts.Unix()))
}

// SetPublicQueueDepth updates the current queue depth gauge for the publisher.
func SetPublicQueueDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	publishQueue.Set(float64(depth))
}

func IncIntent(typ, result string) {
	intentTotal.WithLabelValues(label(typ), label(result)).Inc()
}

// SetBreakerState publishes a breaker transition for target.
func SetBreakerState(target string, state int) {
	breakerState.WithLabelValues(label(target)).Set(float64(state))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests and their latency under route.
func WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
