// Package devicelog records camera lifecycle and command outcomes.
package devicelog

import (
	"encoding/json"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/notify"
	"github.com/nsyszr/flowcount/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Recorder accepts device events. Implementations must not block for long,
// they are called from session goroutines.
type Recorder interface {
	Record(scene string, cam model.Camera, topic string, details interface{})
}

// Log stores every event and publishes it afterwards.
type Log struct {
	store storage.Interface
	pub   notify.Publisher
}

func New(store storage.Interface, pub notify.Publisher) *Log {
	if pub == nil {
		pub = notify.Nop()
	}
	return &Log{
		store: store,
		pub:   pub,
	}
}

func (l *Log) Record(scene string, cam model.Camera, topic string, details interface{}) {
	m := &model.Event{
		Scene:     scene,
		CameraKey: cam.Key(),
		Family:    cam.Family.String(),
		Topic:     topic,
		Timestamp: time.Now().Round(time.Millisecond).UTC(),
		Details:   "{}",
	}

	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			log.Errorf("devicelog failed to marshal details of '%s': %v", topic, err)
		} else {
			m.Details = string(data)
		}
	}

	if err := l.store.Events().Create(m); err != nil {
		log.Errorf("devicelog failed to store event '%s' of %s: %v", topic, m.CameraKey, err)
	}

	if err := l.pub.PublishEvent(m); err != nil {
		log.Warnf("devicelog could not publish event '%s' of %s: %v", topic, m.CameraKey, err)
	}
}

type discard struct{}

// Discard returns a recorder that drops all events.
func Discard() Recorder {
	return discard{}
}

func (discard) Record(string, model.Camera, string, interface{}) {}
