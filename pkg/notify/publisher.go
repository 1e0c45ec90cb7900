// Package notify publishes traffic changes and device events to a message
// broker.
package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
)

// Publisher sends traffic updates and device events to subscribers.
type Publisher interface {
	PublishEvent(m *model.Event) error
	PublishTraffic(u model.TrafficUpdate) error
	Close()
}

const SourceTypeCamera = "camera"

// EventMessage is the wire form of a device event.
type EventMessage struct {
	SourceType string          `json:"source_type"`
	SourceID   string          `json:"source_id"`
	Scene      string          `json:"scene"`
	Family     string          `json:"family"`
	Topic      string          `json:"topic"`
	Timestamp  time.Time       `json:"timestamp"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// TrafficMessage is the wire form of a counter change.
type TrafficMessage struct {
	Scene     string    `json:"scene"`
	Camera    string    `json:"camera"`
	Key       string    `json:"key"`
	In        int       `json:"in"`
	Out       int       `json:"out"`
	Timestamp time.Time `json:"timestamp"`
}

func marshalEvent(m *model.Event) ([]byte, error) {
	msg := EventMessage{
		SourceType: SourceTypeCamera,
		SourceID:   m.CameraKey,
		Scene:      m.Scene,
		Family:     m.Family,
		Topic:      m.Topic,
		Timestamp:  m.Timestamp,
	}
	if m.Details != "" && json.Valid([]byte(m.Details)) {
		msg.Details = json.RawMessage(m.Details)
	}
	return json.Marshal(msg)
}

func marshalTraffic(u model.TrafficUpdate) ([]byte, error) {
	return json.Marshal(TrafficMessage{
		Scene:     u.Scene,
		Camera:    u.Camera.Name,
		Key:       u.Camera.Key(),
		In:        u.Counters.In,
		Out:       u.Counters.Out,
		Timestamp: time.Now().Round(time.Millisecond).UTC(),
	})
}

// segment makes a name usable as a single subject or topic level.
func segment(s string, reserved string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || strings.ContainsRune(reserved, r) {
			return '_'
		}
		return r
	}, s)
}

type nopPublisher struct{}

// Nop returns a publisher that discards everything.
func Nop() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishEvent(*model.Event) error { return nil }
func (nopPublisher) PublishTraffic(model.TrafficUpdate) error { return nil }
func (nopPublisher) Close() {}
