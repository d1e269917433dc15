package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingress queue metrics
	queueDepth      prometheus.Gauge
	eventsPublished *prometheus.CounterVec // by event name
	eventsApplied   *prometheus.CounterVec // by event name
	eventsIgnored   *prometheus.CounterVec // by event name, unknown channel/network

	// Transport metrics
	framesReceived  prometheus.Counter
	framesDropped   *prometheus.CounterVec // by reason
	requestsSent    *prometheus.CounterVec // by request name
	requestsFailed  *prometheus.CounterVec // by request name
	reconnects      prometheus.Counter
	connectionState prometheus.Gauge

	// Reconciler metrics
	applyDuration prometheus.Histogram
	lazyLoads     *prometheus.CounterVec // by request kind (names, more)
}

// NewMetrics creates a metrics instance registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "loungechat_queue_depth",
				Help: "Number of events waiting in the ingress queue",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_events_published_total",
				Help: "Total number of events published to the ingress queue by event name",
			},
			[]string{"event"},
		),
		eventsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_events_applied_total",
				Help: "Total number of events applied to the local mirror by event name",
			},
			[]string{"event"},
		),
		eventsIgnored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_events_ignored_total",
				Help: "Events that referenced an unknown channel or network",
			},
			[]string{"event"},
		),
		framesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loungechat_frames_received_total",
				Help: "Total number of websocket frames received",
			},
		),
		framesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_frames_dropped_total",
				Help: "Frames dropped because they could not be decoded",
			},
			[]string{"reason"},
		),
		requestsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_requests_sent_total",
				Help: "Total number of outbound requests written to the socket",
			},
			[]string{"request"},
		),
		requestsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_requests_failed_total",
				Help: "Outbound requests that could not be queued or encoded",
			},
			[]string{"request"},
		),
		reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loungechat_reconnects_total",
				Help: "Total number of reconnect attempts",
			},
		),
		connectionState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "loungechat_connected",
				Help: "1 when the websocket is connected, 0 otherwise",
			},
		),
		applyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loungechat_apply_duration_seconds",
				Help:    "Time taken to apply one event to the local mirror",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
		),
		lazyLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loungechat_lazy_loads_total",
				Help: "Roster and history fetches issued on first channel activation",
			},
			[]string{"kind"},
		),
	}
}

// RecordQueueDepth updates the ingress queue depth
func (m *Metrics) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// RecordEventPublished increments the published counter for an event
func (m *Metrics) RecordEventPublished(event string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(event).Inc()
}

// RecordEventApplied increments the applied counter and observes apply time
func (m *Metrics) RecordEventApplied(event string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.eventsApplied.WithLabelValues(event).Inc()
	m.applyDuration.Observe(durationSeconds)
}

// RecordEventIgnored counts an event that referenced something we don't have
func (m *Metrics) RecordEventIgnored(event string) {
	if m == nil {
		return
	}
	m.eventsIgnored.WithLabelValues(event).Inc()
}

// RecordFrameReceived increments the received frame counter
func (m *Metrics) RecordFrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// RecordFrameDropped counts a frame that failed to decode
func (m *Metrics) RecordFrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

// RecordRequestSent increments the sent counter for a request
func (m *Metrics) RecordRequestSent(request string) {
	if m == nil {
		return
	}
	m.requestsSent.WithLabelValues(request).Inc()
}

// RecordRequestFailed increments the failed counter for a request
func (m *Metrics) RecordRequestFailed(request string) {
	if m == nil {
		return
	}
	m.requestsFailed.WithLabelValues(request).Inc()
}

// RecordReconnect increments the reconnect counter
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// RecordConnected sets the connection gauge
func (m *Metrics) RecordConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connectionState.Set(1)
	} else {
		m.connectionState.Set(0)
	}
}

// RecordLazyLoad counts a fetch issued on first activation
func (m *Metrics) RecordLazyLoad(kind string) {
	if m == nil {
		return
	}
	m.lazyLoads.WithLabelValues(kind).Inc()
}
