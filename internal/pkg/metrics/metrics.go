package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "xsense_"

	ResultSuccess      = "success"
	ResultError        = "error"
	ResultReauth       = "reauth_required"
	ResultUpdateFailed = "update_failed"
	ResultIgnored      = "ignored"
)

var (
	registerOnce sync.Once

	pollTotal        *prometheus.CounterVec
	pollDuration     *prometheus.HistogramVec
	shadowMessages   *prometheus.CounterVec
	realtimeRequests *prometheus.CounterVec
	brokerConnected  *prometheus.GaugeVec
	entities         prometheus.Gauge
)

// Init registers the metrics with the default registry. Calling it more than once is a no-op.
func Init() {
	registerOnce.Do(func() {
		pollTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_cycles_total",
				Help: "Poll cycles by result",
			},
			[]string{"result"},
		)
		pollDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_duration_seconds",
				Help:    "Poll cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		shadowMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "shadow_messages_total",
				Help: "Shadow messages received by result",
			},
			[]string{"result"},
		)
		realtimeRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "realtime_requests_total",
				Help: "Realtime telemetry requests published by result",
			},
			[]string{"result"},
		)
		brokerConnected = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "broker_connected",
				Help: "1 when the shadow broker connection is open",
			},
			[]string{"server"},
		)
		entities = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "entities",
			Help: "Binary sensor entities currently exposed",
		})

		prometheus.MustRegister(pollTotal, pollDuration, shadowMessages, realtimeRequests, brokerConnected, entities)
	})
}

func ObservePoll(result string, d time.Duration) {
	if pollTotal == nil {
		return
	}
	pollTotal.WithLabelValues(result).Inc()
	pollDuration.WithLabelValues(result).Observe(d.Seconds())
}

func IncShadowMessage(result string) {
	if shadowMessages == nil {
		return
	}
	shadowMessages.WithLabelValues(result).Inc()
}

func IncRealtimeRequest(result string) {
	if realtimeRequests == nil {
		return
	}
	realtimeRequests.WithLabelValues(result).Inc()
}

func SetBrokerConnected(server string, connected bool) {
	if brokerConnected == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	brokerConnected.WithLabelValues(server).Set(v)
}

func SetEntities(n int) {
	if entities == nil {
		return
	}
	entities.Set(float64(n))
}
