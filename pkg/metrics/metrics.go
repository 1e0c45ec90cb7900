// Package metrics exposes the prometheus collectors of the traffic engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowcount"

type Metrics struct {
	sessions      *prometheus.GaugeVec     // live stream sessions by state
	messages      *prometheus.CounterVec   // inbound stream messages by action
	dropped       prometheus.Counter       // unknown or malformed messages
	resets        *prometheus.CounterVec   // reset outcomes by family and result
	resetDuration *prometheus.HistogramVec // reset latency by family
	nativeOnline  *prometheus.GaugeVec     // 1 if the native camera is online
	updates       *prometheus.CounterVec   // counter changes by family
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions",
			Help:      "Stream camera sessions by state",
		}, []string{"state"}),

		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Messages received from stream cameras by action",
		}, []string{"action"}),

		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dropped_messages_total",
			Help:      "Messages dropped because they were malformed or carried an unknown action",
		}),

		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Counter resets by camera family and result",
		}, []string{"family", "result"}),

		resetDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reset_duration_seconds",
			Help:      "Time until a counter reset completed",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5},
		}, []string{"family"}),

		nativeOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "native",
			Name:      "online",
			Help:      "Native camera online state (1=online, 0=offline)",
		}, []string{"camera"}),

		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traffic_updates_total",
			Help:      "Stored traffic counter changes by camera family",
		}, []string{"family"}),
	}

	for _, c := range []prometheus.Collector{
		m.sessions, m.messages, m.dropped, m.resets,
		m.resetDuration, m.nativeOnline, m.updates,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// WatchPending exports the number of outstanding commands reported by fn.
func WatchPending(reg prometheus.Registerer, fn func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_commands",
		Help:      "Reset commands waiting for a device response",
	}, func() float64 {
		return float64(fn())
	}))
}

// SessionTransition moves one session between state gauges. Empty states
// mean the session did not exist before or does not exist afterwards.
func (m *Metrics) SessionTransition(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.sessions.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.sessions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) MessageReceived(action string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(action).Inc()
}

func (m *Metrics) MessageDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) ResetObserved(family, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(family, result).Inc()
	m.resetDuration.WithLabelValues(family).Observe(d.Seconds())
}

func (m *Metrics) NativeOnline(camera string, online bool) {
	if m == nil {
		return
	}
	v := 0.0
	if online {
		v = 1
	}
	m.nativeOnline.WithLabelValues(camera).Set(v)
}

func (m *Metrics) TrafficUpdated(family string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(family).Inc()
}
