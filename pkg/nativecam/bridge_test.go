package nativecam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAdapter struct {
	mock.Mock
	handler EventHandler
}

func (a *mockAdapter) Attach(h EventHandler) {
	a.handler = h
}

func (a *mockAdapter) Login(ctx context.Context, cam model.Camera) (Session, error) {
	args := a.Called(cam.Key())
	return args.Get(0), args.Error(1)
}

func (a *mockAdapter) Logout(sess Session) {
	a.Called(sess)
}

func (a *mockAdapter) ResetCounter(ctx context.Context, sess Session) (bool, error) {
	args := a.Called(sess)
	return args.Bool(0), args.Error(1)
}

func (a *mockAdapter) IsOnline(deviceKey string) bool {
	return a.Called(deviceKey).Bool(0)
}

var gate = model.Camera{
	Name:   "gate",
	IP:     "10.0.0.9",
	Port:   8000,
	Serial: "DS-2CD6825G0-123",
	Family: model.FamilyNative,
}

func scenes() []model.Scene {
	return []model.Scene{{
		Name: "hall",
		Cameras: []model.Camera{
			{Name: "north", IP: "10.0.0.1", Port: 5006, Family: model.FamilyStream},
			gate,
		},
	}}
}

func newBridge(t *testing.T, mode AlarmMode) (*Bridge, *mockAdapter, *traffic.Store) {
	a := &mockAdapter{}
	store := traffic.NewStore(model.FamilyNative)
	b := NewBridge(a, store, scenes(), Options{
		AlarmMode:    mode,
		LoginRetry:   20 * time.Millisecond,
		ResetTimeout: 100 * time.Millisecond,
	})
	require.Same(t, b, a.handler)
	return b, a, store
}

func counters(t *testing.T, store *traffic.Store) model.Counters {
	_, e, ok := store.Lookup(gate.Key())
	require.True(t, ok)
	return e.Counters
}

func login(t *testing.T, b *Bridge, a *mockAdapter) {
	a.On("Login", gate.Key()).Return("session-1", nil).Once()
	b.Start(context.Background())
	b.wg.Wait()
	a.handler.OnDeviceState(gate.Key(), true)
}

func TestNewBridgeRegistersNativeCamerasOnly(t *testing.T) {
	_, _, store := newBridge(t, AlarmModeRealtime)

	entries, ok := store.Entries("hall")
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "gate", entries[0].Camera.Name)
	assert.Equal(t, model.Counters{}, entries[0].Counters)
}

func TestAlarmUpsertsCounters(t *testing.T) {
	b, _, store := newBridge(t, AlarmModeRealtime)

	b.OnAlarm(gate.Key(), model.Counters{In: 4, Out: 1})
	assert.Equal(t, model.Counters{In: 4, Out: 1}, counters(t, store))

	// Realtime mode accepts lower values, e.g. after a device side reset.
	b.OnAlarm(gate.Key(), model.Counters{In: 0, Out: 0})
	assert.Equal(t, model.Counters{}, counters(t, store))
}

func TestAlarmBySerialNumber(t *testing.T) {
	b, _, store := newBridge(t, AlarmModeRealtime)

	b.OnAlarm("DS-2CD6825G0-123", model.Counters{In: 2, Out: 2})
	assert.Equal(t, model.Counters{In: 2, Out: 2}, counters(t, store))
}

func TestAlarmFromUnknownDeviceIgnored(t *testing.T) {
	b, _, store := newBridge(t, AlarmModeRealtime)

	b.OnAlarm("10.9.9.9:8000", model.Counters{In: 2, Out: 2})
	_, _, ok := store.Lookup("10.9.9.9:8000")
	assert.False(t, ok)
}

func TestPeriodicModeDropsStaleAlarms(t *testing.T) {
	b, _, store := newBridge(t, AlarmModePeriodic)

	b.OnAlarm(gate.Key(), model.Counters{In: 5, Out: 3})
	b.OnAlarm(gate.Key(), model.Counters{In: 5, Out: 3})
	b.OnAlarm(gate.Key(), model.Counters{In: 4, Out: 2})
	assert.Equal(t, model.Counters{In: 5, Out: 3}, counters(t, store))

	b.OnAlarm(gate.Key(), model.Counters{In: 6, Out: 3})
	assert.Equal(t, model.Counters{In: 6, Out: 3}, counters(t, store))

	// One increased counter is enough, even if the other went down.
	b.OnAlarm(gate.Key(), model.Counters{In: 6, Out: 4})
	assert.Equal(t, model.Counters{In: 6, Out: 4}, counters(t, store))
	b.OnAlarm(gate.Key(), model.Counters{In: 7, Out: 2})
	assert.Equal(t, model.Counters{In: 7, Out: 2}, counters(t, store))
}

func TestDeviceStateTracksOnlineRegistry(t *testing.T) {
	b, _, _ := newBridge(t, AlarmModeRealtime)

	b.OnDeviceState(gate.Key(), true)
	assert.True(t, b.IsOnline(gate.Key()))
	_, ok := b.Online().LastSeen(gate.Key())
	assert.True(t, ok)

	b.OnDeviceState(gate.Serial, false)
	assert.False(t, b.IsOnline(gate.Key()))
	assert.Empty(t, b.Online().Keys())
}

func TestLoginRetriesUntilSuccess(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	a.On("Login", gate.Key()).Return(nil, errors.New("connection refused")).Twice()
	a.On("Login", gate.Key()).Return("session-1", nil).Once()

	b.Start(context.Background())
	b.wg.Wait()

	a.AssertNumberOfCalls(t, "Login", 3)
	v, ok := b.sessions.Load(gate.Key())
	require.True(t, ok)
	assert.Equal(t, "session-1", v)
}

func TestStopEndsLoginRetriesAndLogsOut(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	a.On("Login", gate.Key()).Return(nil, errors.New("connection refused"))

	b.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	a.AssertNotCalled(t, "Logout", mock.Anything)
}

func TestResetCounterOffline(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)

	err := b.ResetCounter(context.Background(), gate.Key())
	assert.Equal(t, model.ErrDeviceOffline, err)
	a.AssertNotCalled(t, "ResetCounter", mock.Anything)
}

func TestResetCounterUnknownCamera(t *testing.T) {
	b, _, _ := newBridge(t, AlarmModeRealtime)

	err := b.ResetCounter(context.Background(), "10.0.0.1:5006")
	assert.Equal(t, model.ErrCameraNotFound, err)
}

func TestResetCounterSucceeds(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	login(t, b, a)
	a.On("IsOnline", gate.Key()).Return(true)
	a.On("ResetCounter", "session-1").Return(true, nil).Once()

	assert.NoError(t, b.ResetCounter(context.Background(), gate.Key()))
	a.AssertExpectations(t)
}

func TestResetCounterRejected(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	login(t, b, a)
	a.On("IsOnline", gate.Key()).Return(true)
	a.On("ResetCounter", "session-1").Return(false, nil).Once()

	assert.Equal(t, model.ErrResetFailed, b.ResetCounter(context.Background(), gate.Key()))
}

func TestResetCounterAdapterError(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	login(t, b, a)
	a.On("IsOnline", gate.Key()).Return(true)
	a.On("ResetCounter", "session-1").Return(false, errors.New("NET_DVR_ERROR 7")).Once()

	assert.Equal(t, model.ErrResetFailed, b.ResetCounter(context.Background(), gate.Key()))
}

func TestResetCounterTimeout(t *testing.T) {
	b, a, _ := newBridge(t, AlarmModeRealtime)
	login(t, b, a)
	a.On("IsOnline", gate.Key()).Return(true)
	a.On("ResetCounter", "session-1").Return(false, context.DeadlineExceeded).Once()

	assert.Equal(t, model.ErrResponseTimeout, b.ResetCounter(context.Background(), gate.Key()))
}

func TestResetCounterPeriodicZeroesStore(t *testing.T) {
	b, a, store := newBridge(t, AlarmModePeriodic)
	login(t, b, a)
	a.On("IsOnline", gate.Key()).Return(true)
	a.On("ResetCounter", "session-1").Return(true, nil).Once()

	b.OnAlarm(gate.Key(), model.Counters{In: 9, Out: 9})
	require.NoError(t, b.ResetCounter(context.Background(), gate.Key()))
	assert.Equal(t, model.Counters{}, counters(t, store))

	b.OnAlarm(gate.Key(), model.Counters{In: 1, Out: 0})
	assert.Equal(t, model.Counters{In: 1, Out: 0}, counters(t, store))
}

func TestConcurrentAlarmsAndStateChanges(t *testing.T) {
	b, _, store := newBridge(t, AlarmModeRealtime)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.OnAlarm(gate.Key(), model.Counters{In: j, Out: n})
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.OnDeviceState(gate.Key(), j%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	b.OnAlarm(gate.Key(), model.Counters{In: 100, Out: 50})
	assert.Equal(t, model.Counters{In: 100, Out: 50}, counters(t, store))
}

func TestReportOnline(t *testing.T) {
	b, _, _ := newBridge(t, AlarmModeRealtime)
	b.ReportOnline()
	b.OnDeviceState(gate.Key(), true)
	b.ReportOnline()
}

func TestParseAlarmMode(t *testing.T) {
	m, ok := ParseAlarmMode("")
	assert.True(t, ok)
	assert.Equal(t, AlarmModeRealtime, m)

	m, ok = ParseAlarmMode("periodic")
	assert.True(t, ok)
	assert.Equal(t, AlarmModePeriodic, m)

	_, ok = ParseAlarmMode("hourly")
	assert.False(t, ok)
}
