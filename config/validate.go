package config

import (
	"fmt"
	"strings"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/nativecam"
	"github.com/nsyszr/flowcount/pkg/scheduler"
)

// Validation failure reasons
const (
	ErrReasonDuplicateScene  = "ERR_DUPLICATE_SCENE"
	ErrReasonDuplicateCamera = "ERR_DUPLICATE_CAMERA"
	ErrReasonDuplicateKey    = "ERR_DUPLICATE_CAMERA_KEY"
	ErrReasonMissingField    = "ERR_MISSING_FIELD"
	ErrReasonInvalidValue    = "ERR_INVALID_VALUE"
)

type ValidationError struct {
	Reason  string
	Details interface{}
}

func NewValidationError(reason string, details interface{}) error {
	return &ValidationError{
		Reason:  reason,
		Details: details,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: reason: %s: %v", e.Reason, e.Details)
}

func IsValidationError(e error) bool {
	_, ok := e.(*ValidationError)
	return ok
}

// Validate checks the settings that must hold before any camera is
// contacted. It expects a normalized configuration.
func (c *Config) Validate() error {
	if err := c.validateScenes(); err != nil {
		return err
	}

	for _, spec := range c.ResetCron {
		if _, err := scheduler.ParseSpec(spec); err != nil {
			return NewValidationError(ErrReasonInvalidValue, err.Error())
		}
	}

	if _, ok := nativecam.ParseAlarmMode(c.NativeAlarmMode); !ok {
		return NewValidationError(ErrReasonInvalidValue,
			fmt.Sprintf("unknown native alarm mode '%s'", c.NativeAlarmMode))
	}

	switch strings.ToLower(c.NotifyDriver) {
	case "", NotifyNone:
	case NotifyNATS:
		if c.NATSServerURL == "" {
			return NewValidationError(ErrReasonMissingField, "NATS_URL is required by the nats notify driver")
		}
	case NotifyMQTT:
		if c.MQTTServerURL == "" {
			return NewValidationError(ErrReasonMissingField, "MQTT_URL is required by the mqtt notify driver")
		}
	default:
		return NewValidationError(ErrReasonInvalidValue,
			fmt.Sprintf("unknown notify driver '%s'", c.NotifyDriver))
	}

	return nil
}

func (c *Config) validateScenes() error {
	scenes := make(map[string]bool)
	keys := make(map[string]string)

	for _, s := range c.Scenes {
		if s.Name == "" {
			return NewValidationError(ErrReasonMissingField, "scene without name")
		}
		if scenes[s.Name] {
			return NewValidationError(ErrReasonDuplicateScene, s.Name)
		}
		scenes[s.Name] = true

		names := make(map[string]bool)
		for _, cam := range s.Cameras {
			if cam.Name == "" || cam.IP == "" {
				return NewValidationError(ErrReasonMissingField,
					fmt.Sprintf("camera in scene '%s' needs a name and an ip", s.Name))
			}
			if _, err := model.ParseFamily(cam.Type); err != nil {
				return NewValidationError(ErrReasonInvalidValue,
					fmt.Sprintf("camera '%s' in scene '%s': %v", cam.Name, s.Name, err))
			}
			if names[cam.Name] {
				return NewValidationError(ErrReasonDuplicateCamera,
					fmt.Sprintf("camera '%s' in scene '%s'", cam.Name, s.Name))
			}
			names[cam.Name] = true

			key := cam.Key()
			if other, ok := keys[key]; ok {
				return NewValidationError(ErrReasonDuplicateKey,
					fmt.Sprintf("%s used by '%s' and '%s/%s'", key, other, s.Name, cam.Name))
			}
			keys[key] = s.Name + "/" + cam.Name
		}
	}

	return nil
}
