package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the Prometheus sink for the backend client, the live feed,
// the pollers and the tick sink.
type Recorder struct {
	requests     *prometheus.CounterVec
	requestTime  *prometheus.HistogramVec
	refreshes    *prometheus.CounterVec
	forcedLogout prometheus.Counter
	feedState    *prometheus.GaugeVec
	reconnects   *prometheus.CounterVec
	ticks        *prometheus.CounterVec
	parseErrors  *prometheus.CounterVec
	polls        *prometheus.CounterVec

	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_backend_requests_total",
				Help: "Backend requests by endpoint and status class",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leoneai_backend_request_duration_seconds",
				Help:    "Backend request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_token_refresh_total",
				Help: "Token refresh attempts by result",
			},
			[]string{"result"},
		),
		forcedLogout: f.NewCounter(
			prometheus.CounterOpts{
				Name: "leoneai_forced_logouts_total",
				Help: "Sessions cleared after an irrecoverable refresh failure",
			},
		),
		feedState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leoneai_feed_state",
				Help: "1 for the current state of each feed channel",
			},
			[]string{"channel", "state"},
		),
		reconnects: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_feed_reconnects_total",
				Help: "Reconnect timers scheduled per feed channel",
			},
			[]string{"channel"},
		),
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_feed_ticks_total",
				Help: "Ticks received per symbol",
			},
			[]string{"symbol"},
		),
		parseErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_feed_parse_errors_total",
				Help: "Malformed frames dropped per feed channel",
			},
			[]string{"channel"},
		),
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_poll_total",
				Help: "Poll ticks by resource and result",
			},
			[]string{"resource", "result"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_sink_messages_sent_total",
				Help: "Ticks forwarded to a sink backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leoneai_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leoneai_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leoneai_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

var feedStates = []string{"disconnected", "connecting", "connected"}

// ObserveRequest records one backend round trip.
func (r *Recorder) ObserveRequest(method, path string, status int, d time.Duration) {
	ep := endpoint(path)
	r.requests.WithLabelValues(method, ep, statusClass(status)).Inc()
	r.requestTime.WithLabelValues(method, ep).Observe(d.Seconds())
}

// ObserveRefresh records a token refresh outcome.
func (r *Recorder) ObserveRefresh(result string) {
	r.refreshes.WithLabelValues(result).Inc()
}

// ObserveForcedLogout records a session cleared by the client wrapper.
func (r *Recorder) ObserveForcedLogout() {
	r.forcedLogout.Inc()
}

// ObserveFeedState marks state as the only active state of channel.
func (r *Recorder) ObserveFeedState(channel, state string) {
	for _, s := range feedStates {
		v := 0.0
		if s == state {
			v = 1
		}
		r.feedState.WithLabelValues(channel, s).Set(v)
	}
}

func (r *Recorder) ObserveReconnect(channel string) {
	r.reconnects.WithLabelValues(channel).Inc()
}

func (r *Recorder) ObserveTick(symbol string) {
	r.ticks.WithLabelValues(symbol).Inc()
}

func (r *Recorder) ObserveParseError(channel string) {
	r.parseErrors.WithLabelValues(channel).Inc()
}

// ObservePoll records one poll tick.
func (r *Recorder) ObservePoll(resource, result string) {
	r.polls.WithLabelValues(resource, result).Inc()
}

// RecordMessageSent records a tick sent to a sink backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// endpoint collapses numeric path segments so ids do not become labels.
func endpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
