package model

type deviceError string

func (e deviceError) Error() string {
	return string(e)
}

// Failure reasons reported to callers of the traffic operations.
const (
	ErrDeviceOffline   = deviceError("device offline")
	ErrResponseTimeout = deviceError("device response timeout")
	ErrResetFailed     = deviceError("reset failed")
	ErrSceneNotFound   = deviceError("scene not found")
	ErrCameraNotFound  = deviceError("camera not found")
	ErrSuperseded      = deviceError("superseded by a newer command")
)
