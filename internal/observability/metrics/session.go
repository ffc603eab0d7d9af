// Package metrics exposes Prometheus metrics for the session lifecycle.
package metrics

import (
	"net/http"
	"time"

	obserrors "github.com/pastibot/companion/internal/observability/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Logout reasons.
const (
	LogoutUser         = "user"
	LogoutUnauthorized = "unauthorized"
)

// Recorder is what the session and credential exchange report to.
type Recorder interface {
	RecordSignIn(method, result string, err error, d time.Duration)
	RecordRestore(result string, err error)
	RecordLogout(reason string)
	RecordRobotEvent(event string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSignIn(string, string, error, time.Duration) {}
func (Nop) RecordRestore(string, error)                       {}
func (Nop) RecordLogout(string)                               {}
func (Nop) RecordRobotEvent(string)                           {}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	signIns       *prometheus.CounterVec
	signInLatency *prometheus.HistogramVec
	restores      *prometheus.CounterVec
	logouts       *prometheus.CounterVec
	robotEvents   *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastibot_signin_attempts_total",
			Help: "Sign-in attempts by method, result and error class.",
		}, []string{"method", "result", "error_class"}),
		signInLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pastibot_signin_duration_seconds",
			Help:    "Duration of sign-in attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastibot_session_restore_total",
			Help: "Session restores at startup by result.",
		}, []string{"result", "error_class"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastibot_logout_total",
			Help: "Logouts by reason.",
		}, []string{"reason"}),
		robotEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastibot_robot_events_total",
			Help: "Realtime robot events received by type.",
		}, []string{"event"}),
	}

	reg.MustRegister(c.signIns, c.signInLatency, c.restores, c.logouts, c.robotEvents)
	return c
}

// RecordSignIn records one finished sign-in attempt.
func (c *Collector) RecordSignIn(method, result string, err error, d time.Duration) {
	c.signIns.WithLabelValues(method, result, obserrors.Classify(err)).Inc()
	if d > 0 {
		c.signInLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}

// RecordRestore records the outcome of restoring a persisted session.
func (c *Collector) RecordRestore(result string, err error) {
	c.restores.WithLabelValues(result, obserrors.Classify(err)).Inc()
}

// RecordLogout records a logout.
func (c *Collector) RecordLogout(reason string) {
	c.logouts.WithLabelValues(reason).Inc()
}

// RecordRobotEvent records a realtime robot event.
func (c *Collector) RecordRobotEvent(event string) {
	c.robotEvents.WithLabelValues(event).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns a mux serving /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
