package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransitions(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SessionTransition("", "CONNECTED")
	m.SessionTransition("CONNECTED", "LOGIN_SENT")
	m.SessionTransition("LOGIN_SENT", "AUTHENTICATED")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessions.WithLabelValues("CONNECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("AUTHENTICATED")))

	m.SessionTransition("AUTHENTICATED", "")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessions.WithLabelValues("AUTHENTICATED")))
}

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.MessageReceived("login")
	m.MessageDropped()
	m.ResetObserved("stream", "ok", 200*time.Millisecond)
	m.NativeOnline("gate", true)
	m.TrafficUpdated("native")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets.WithLabelValues("stream", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nativeOnline.WithLabelValues("gate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("native")))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestWatchPending(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, WatchPending(reg, func() int { return 3 }))

	n, err := testutil.GatherAndCount(reg, "flowcount_pending_commands")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SessionTransition("", "CONNECTED")
	m.MessageReceived("login")
	m.MessageDropped()
	m.ResetObserved("native", "failed", time.Second)
	m.NativeOnline("gate", false)
	m.TrafficUpdated("stream")
}
