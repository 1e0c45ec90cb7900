package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/model"
	log "github.com/sirupsen/logrus"
)

const feedBuffer = 64

// Feed fans traffic updates out to the realtime websocket clients. Slow
// clients lose updates instead of blocking the store.
type Feed struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan []byte]struct{})}
}

// Update is a traffic.Observer.
func (f *Feed) Update(u model.TrafficUpdate) {
	data, err := json.Marshal(resource.NewRealtimeTraffic(u, time.Now()))
	if err != nil {
		log.Errorf("api: failed to marshal realtime traffic: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- data:
		default:
			log.Debugf("api: realtime client too slow, dropped update of %s", u.Camera.Key())
		}
	}
}

func (f *Feed) subscribe() chan []byte {
	ch := make(chan []byte, feedBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) unsubscribe(ch chan []byte) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// Len returns the number of connected clients.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
