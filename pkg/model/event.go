package model

import "time"

// Device event topics.
const (
	TopicSessionConnected     = "session.connected"
	TopicSessionAuthenticated = "session.authenticated"
	TopicSessionLoginFailed   = "session.login_failed"
	TopicSessionClosed        = "session.closed"
	TopicDeviceOnline         = "device.online"
	TopicDeviceOffline        = "device.offline"
	TopicResetSucceeded       = "reset.succeeded"
	TopicResetFailed          = "reset.failed"
)

// Event is a device lifecycle or command outcome in the persistency layer.
type Event struct {
	ID        int32
	Scene     string
	CameraKey string
	Family    string
	Topic     string
	Timestamp time.Time
	Details   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
