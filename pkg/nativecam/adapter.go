package nativecam

import (
	"context"

	"github.com/nsyszr/flowcount/pkg/model"
)

// Session is the adapter's handle of a logged in device.
type Session interface{}

// EventHandler receives the asynchronous device events of an adapter. The
// device key is either the camera key or the device serial number.
type EventHandler interface {
	OnAlarm(deviceKey string, c model.Counters)
	OnDeviceState(deviceKey string, online bool)
}

// Adapter reaches native cameras through the vendor interface.
type Adapter interface {
	Attach(h EventHandler)
	Login(ctx context.Context, cam model.Camera) (Session, error)
	Logout(sess Session)
	ResetCounter(ctx context.Context, sess Session) (bool, error)
	IsOnline(deviceKey string) bool
}

type AlarmMode string

const (
	// AlarmModeRealtime accepts every alarm as the current value.
	AlarmModeRealtime AlarmMode = "realtime"
	// AlarmModePeriodic drops alarms that increase neither counter.
	AlarmModePeriodic AlarmMode = "periodic"
)

func ParseAlarmMode(s string) (AlarmMode, bool) {
	switch AlarmMode(s) {
	case "", AlarmModeRealtime:
		return AlarmModeRealtime, true
	case AlarmModePeriodic:
		return AlarmModePeriodic, true
	}
	return "", false
}
