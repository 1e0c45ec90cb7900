package model

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Family tells how a camera is reached.
type Family int

const (
	// FamilyStream cameras speak JSON over a persistent TCP connection.
	FamilyStream Family = iota
	// FamilyNative cameras are reached through a vendor adapter.
	FamilyNative
)

func (f Family) String() string {
	names := []string{
		"stream",
		"native"}

	if f < FamilyStream || f > FamilyNative {
		return "unknown"
	}

	return names[f]
}

// ParseFamily accepts the family names used in configuration files,
// including the vendor aliases.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stream", "deepcam":
		return FamilyStream, nil
	case "native", "hik", "hikvision":
		return FamilyNative, nil
	}
	return FamilyStream, fmt.Errorf("unknown camera type '%s'", s)
}

// MarshalText encodes the family as its name.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a family name.
func (f *Family) UnmarshalText(text []byte) error {
	v, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Camera identifies a configured camera. It is immutable after the
// configuration is loaded.
type Camera struct {
	Name     string `mapstructure:"name" json:"name"`
	IP       string `mapstructure:"ip" json:"ip"`
	Port     int    `mapstructure:"port" json:"port"`
	Location string `mapstructure:"location" json:"location"`
	UserName string `mapstructure:"user_name" json:"-"`
	Password string `mapstructure:"password" json:"-"`
	RTSPPort int    `mapstructure:"rtsp_port" json:"rtspPort"`
	HTTPPort int    `mapstructure:"http_port" json:"httpPort,omitempty"`
	Serial   string `mapstructure:"serial" json:"serial,omitempty"`
	Type     string `mapstructure:"type" json:"-"`
	Family   Family `mapstructure:"-" json:"type"`
}

// Key returns the deployment wide identity of the camera.
func (c Camera) Key() string {
	return CameraKey(c.IP, c.Port)
}

// RTSPURL returns the camera's RTSP source including credentials.
func (c Camera) RTSPURL() string {
	u := url.URL{
		Scheme: "rtsp",
		User:   url.UserPassword(c.UserName, c.Password),
		Host:   net.JoinHostPort(c.IP, strconv.Itoa(c.RTSPPort)),
	}
	return u.String()
}

// CameraKey builds the key for an ip and port pair.
func CameraKey(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
