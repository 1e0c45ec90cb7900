package config

import (
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
)

// Notification drivers
const (
	NotifyNone = "none"
	NotifyNATS = "nats"
	NotifyMQTT = "mqtt"
)

// Camera defaults applied by Normalize
const (
	DefaultCameraPort     = 5006
	DefaultCameraUser     = "admin"
	DefaultCameraPassword = "admin"
	DefaultRTSPPort       = 554
	DefaultHTTPPort       = 80
)

// Config contains all application settings
type Config struct {
	BindPort    int    `mapstructure:"PORT" yaml:"port"`
	BindHost    string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL string `mapstructure:"DATABASE_URL" yaml:"database_url"`

	NotifyDriver    string `mapstructure:"NOTIFY_DRIVER" yaml:"notify_driver"`
	NATSServerURL   string `mapstructure:"NATS_URL" yaml:"nats_url"`
	MQTTServerURL   string `mapstructure:"MQTT_URL" yaml:"mqtt_url"`
	MQTTClientID    string `mapstructure:"MQTT_CLIENT_ID" yaml:"mqtt_client_id"`
	MQTTTopicPrefix string `mapstructure:"MQTT_TOPIC_PREFIX" yaml:"mqtt_topic_prefix"`

	StreamURLPrefix string        `mapstructure:"STREAM_URL_PREFIX" yaml:"stream_url_prefix"`
	ResetCron       []string      `mapstructure:"RESET_CRON" yaml:"reset_cron"`
	ResetTimeout    time.Duration `mapstructure:"RESET_TIMEOUT" yaml:"reset_timeout"`

	// Stream cameras
	PollInterval   time.Duration `mapstructure:"POLL_INTERVAL" yaml:"poll_interval"`
	IdleTimeout    time.Duration `mapstructure:"IDLE_TIMEOUT" yaml:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"CONNECT_TIMEOUT" yaml:"connect_timeout"`
	ReconnectDelay time.Duration `mapstructure:"RECONNECT_DELAY" yaml:"reconnect_delay"`

	// Native cameras
	NativeAlarmMode      string        `mapstructure:"NATIVE_ALARM_MODE" yaml:"native_alarm_mode"`
	NativeLoginRetry     time.Duration `mapstructure:"NATIVE_LOGIN_RETRY" yaml:"native_login_retry"`
	NativeHTTPTimeout    time.Duration `mapstructure:"NATIVE_HTTP_TIMEOUT" yaml:"native_http_timeout"`
	OnlineReportInterval time.Duration `mapstructure:"ONLINE_REPORT_INTERVAL" yaml:"online_report_interval"`

	// Client commands
	ServerURL string `mapstructure:"SERVER_URL" yaml:"server_url"`

	LogLevel  string `mapstructure:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `mapstructure:"LOG_FORMAT" yaml:"log_format"`

	Scenes []model.Scene `mapstructure:"SCENES" yaml:"scenes"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

// Normalize fills in the camera defaults and resolves the camera families.
// Unknown camera types are left for Validate to report.
func (c *Config) Normalize() {
	for i := range c.Scenes {
		cams := c.Scenes[i].Cameras
		for j := range cams {
			cam := &cams[j]
			if cam.Port == 0 {
				cam.Port = DefaultCameraPort
			}
			if cam.UserName == "" {
				cam.UserName = DefaultCameraUser
			}
			if cam.Password == "" {
				cam.Password = DefaultCameraPassword
			}
			if cam.RTSPPort == 0 {
				cam.RTSPPort = DefaultRTSPPort
			}
			if cam.HTTPPort == 0 {
				cam.HTTPPort = DefaultHTTPPort
			}
			if f, err := model.ParseFamily(cam.Type); err == nil {
				cam.Family = f
			}
		}
	}
}
