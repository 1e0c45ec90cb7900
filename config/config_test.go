package config

import (
	"testing"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := &Config{
		ResetCron:       []string{"0 0 0 * * ?"},
		NativeAlarmMode: "realtime",
		NotifyDriver:    NotifyNone,
		Scenes: []model.Scene{
			{
				Name: "hall",
				Cameras: []model.Camera{
					{Name: "north", IP: "10.0.0.1"},
					{Name: "gate", IP: "10.0.0.9", Port: 8000, Type: "hik", Password: "secret"},
				},
			},
			{
				Name: "lobby",
				Cameras: []model.Camera{
					{Name: "north", IP: "10.0.1.1", Type: "deepcam"},
				},
			},
		},
	}
	c.Normalize()
	return c
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	c := validConfig()

	north := c.Scenes[0].Cameras[0]
	assert.Equal(t, 5006, north.Port)
	assert.Equal(t, "admin", north.UserName)
	assert.Equal(t, "admin", north.Password)
	assert.Equal(t, 554, north.RTSPPort)
	assert.Equal(t, 80, north.HTTPPort)
	assert.Equal(t, model.FamilyStream, north.Family)

	gate := c.Scenes[0].Cameras[1]
	assert.Equal(t, 8000, gate.Port)
	assert.Equal(t, "secret", gate.Password)
	assert.Equal(t, model.FamilyNative, gate.Family)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
		reason string
	}{
		{
			name:   "duplicate scene",
			modify: func(c *Config) { c.Scenes[1].Name = "hall" },
			reason: ErrReasonDuplicateScene,
		},
		{
			name: "duplicate camera name",
			modify: func(c *Config) {
				c.Scenes[0].Cameras[1].Name = "north"
			},
			reason: ErrReasonDuplicateCamera,
		},
		{
			name: "duplicate key across scenes",
			modify: func(c *Config) {
				c.Scenes[1].Cameras[0].IP = "10.0.0.1"
			},
			reason: ErrReasonDuplicateKey,
		},
		{
			name:   "missing ip",
			modify: func(c *Config) { c.Scenes[0].Cameras[0].IP = "" },
			reason: ErrReasonMissingField,
		},
		{
			name:   "unknown type",
			modify: func(c *Config) { c.Scenes[0].Cameras[0].Type = "analog" },
			reason: ErrReasonInvalidValue,
		},
		{
			name:   "invalid cron",
			modify: func(c *Config) { c.ResetCron = []string{"at midnight"} },
			reason: ErrReasonInvalidValue,
		},
		{
			name:   "unknown alarm mode",
			modify: func(c *Config) { c.NativeAlarmMode = "batched" },
			reason: ErrReasonInvalidValue,
		},
		{
			name:   "unknown notify driver",
			modify: func(c *Config) { c.NotifyDriver = "kafka" },
			reason: ErrReasonInvalidValue,
		},
		{
			name:   "nats without url",
			modify: func(c *Config) { c.NotifyDriver = NotifyNATS },
			reason: ErrReasonMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(c)

			err := c.Validate()
			require.Error(t, err)
			require.True(t, IsValidationError(err))
			assert.Equal(t, tt.reason, err.(*ValidationError).Reason)
		})
	}
}
