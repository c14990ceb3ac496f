// Package metrics exposes Prometheus collectors for the ingestion path.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "energy_monitor_"

// Ingest results, used as label values.
const (
	ResultAccepted        = "accepted"
	ResultUnauthenticated = "unauthenticated"
	ResultInvalidPayload  = "invalid_payload"
	ResultRateLimited     = "rate_limited"
	ResultFailed          = "failed"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	alertsRaised      *prometheus.CounterVec
	alertsSuppressed  *prometheus.CounterVec
	alertEvalFailures prometheus.Counter
	limiterKeys       prometheus.Gauge
	liveSubscribers   prometheus.Gauge
	statementExports  *prometheus.CounterVec
	brokerConnected   prometheus.Gauge
	brokerMessages    *prometheus.CounterVec
)

// Init registers collectors with reg, or the default registerer when nil.
// Only the first call has any effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest attempts by result",
			},
			[]string{"source", "result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Alerts stored by type",
			},
			[]string{"type"},
		)
		alertsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Alerts skipped by the repeat cooldown, by type",
			},
			[]string{"type"},
		)
		alertEvalFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_evaluation_failures_total",
				Help: "Alert evaluations that failed after the reading was stored",
			},
		)
		limiterKeys = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "device_limiter_keys",
				Help: "Devices currently tracked by the ingest rate limiter",
			},
		)
		liveSubscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "live_subscribers",
				Help: "Connected websocket subscribers",
			},
		)
		statementExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_exports_total",
				Help: "Billing statement exports by result",
			},
			[]string{"result"},
		)

		brokerConnected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "mqtt_connected",
				Help: "1 while the MQTT session is up",
			},
		)
		brokerMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_messages_total",
				Help: "Inbound MQTT messages by result",
			},
			[]string{"result"},
		)

		reg.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			alertsRaised,
			alertsSuppressed,
			alertEvalFailures,
			limiterKeys,
			liveSubscribers,
			statementExports,
			brokerConnected,
			brokerMessages,
		)
	})
}

// ObserveIngest records one ingest attempt.
func ObserveIngest(source, result string, duration time.Duration) {
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(source, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncIngestError(reason string) {
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

func IncAlertRaised(alertType string) {
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(alertType).Inc()
	}
}

func IncAlertSuppressed(alertType string) {
	if alertsSuppressed != nil {
		alertsSuppressed.WithLabelValues(alertType).Inc()
	}
}

func IncAlertEvaluationFailure() {
	if alertEvalFailures != nil {
		alertEvalFailures.Inc()
	}
}

func SetLimiterKeys(n int) {
	if limiterKeys != nil {
		limiterKeys.Set(float64(n))
	}
}

func SetLiveSubscribers(n int) {
	if liveSubscribers != nil {
		liveSubscribers.Set(float64(n))
	}
}

func IncStatementExport(result string) {
	if statementExports != nil {
		statementExports.WithLabelValues(result).Inc()
	}
}

func SetBrokerConnected(up bool) {
	if brokerConnected == nil {
		return
	}
	if up {
		brokerConnected.Set(1)
	} else {
		brokerConnected.Set(0)
	}
}

// IncBrokerMessage counts an inbound message as handled, unrouted or failed.
func IncBrokerMessage(result string) {
	if brokerMessages != nil {
		brokerMessages.WithLabelValues(result).Inc()
	}
}
