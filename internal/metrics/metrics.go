// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

var (
	initOnce sync.Once

	sessionTransitionsCounter *prometheus.CounterVec
	ingestEventsCounter       *prometheus.CounterVec
	realtimeDroppedCounter    *prometheus.CounterVec
	channelErrorsCounter      prometheus.Counter
	teardownFailuresCounter   prometheus.Counter
	pushConnectionsGauge      prometheus.Gauge
	activeSessionsGauge       prometheus.Gauge
	codegenDurationMetric     *prometheus.HistogramVec
)

// Ingest outcomes; the first three mirror the processor decisions.
var IngestOutcomes = []string{"accepted", "merged", "filtered", "rejected", "duplicate"}

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		sessionTransitionsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recorder_session_transitions_total",
				Help: "Total number of recording session status transitions by target status.",
			},
			[]string{"status"},
		)

		ingestEventsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recorder_ingest_events_total",
				Help: "Total number of submitted events by outcome and channel.",
			},
			[]string{"outcome", "channel"},
		)

		realtimeDroppedCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recorder_realtime_dropped_total",
				Help: "Messages dropped from slow realtime subscribers by topic kind.",
			},
			[]string{"topic_kind"},
		)

		channelErrorsCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recorder_channel_errors_total",
				Help: "Total number of failed realtime forwarder sends.",
			},
		)

		teardownFailuresCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recorder_teardown_failures_total",
				Help: "Total number of browser teardown failures during stop.",
			},
		)

		pushConnectionsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recorder_push_connections",
				Help: "Currently open push channel connections.",
			},
		)

		activeSessionsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recorder_sessions_registered",
				Help: "Sessions currently held in the in-memory registry.",
			},
		)

		codegenDurationMetric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recorder_codegen_duration_seconds",
				Help:    "Duration of code generation passes in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"framework"},
		)

		prometheus.MustRegister(
			sessionTransitionsCounter,
			ingestEventsCounter,
			realtimeDroppedCounter,
			channelErrorsCounter,
			teardownFailuresCounter,
			pushConnectionsGauge,
			activeSessionsGauge,
			codegenDurationMetric,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, status := range domain.AllStatuses {
			sessionTransitionsCounter.WithLabelValues(string(status))
		}
		for _, outcome := range IngestOutcomes {
			ingestEventsCounter.WithLabelValues(outcome, "http")
			ingestEventsCounter.WithLabelValues(outcome, "push")
		}
	})
}

func IncSessionTransition(status domain.RecordingStatus) {
	Init()
	sessionTransitionsCounter.WithLabelValues(string(status)).Inc()
}

func IncIngest(outcome, channel string) {
	Init()
	ingestEventsCounter.WithLabelValues(outcome, channel).Inc()
}

func IncRealtimeDropped(topicKind string) {
	Init()
	realtimeDroppedCounter.WithLabelValues(topicKind).Inc()
}

func IncChannelErrors() {
	Init()
	channelErrorsCounter.Inc()
}

func IncTeardownFailures() {
	Init()
	teardownFailuresCounter.Inc()
}

func AddPushConnections(delta float64) {
	Init()
	pushConnectionsGauge.Add(delta)
}

func SetRegisteredSessions(n int) {
	Init()
	activeSessionsGauge.Set(float64(n))
}

func ObserveCodegenDuration(framework string, d time.Duration) {
	Init()
	codegenDurationMetric.WithLabelValues(framework).Observe(d.Seconds())
}
