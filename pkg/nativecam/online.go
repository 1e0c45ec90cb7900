package nativecam

import (
	"sort"
	"sync"
	"time"
)

// OnlineRegistry maps device keys to the time they were last seen.
type OnlineRegistry struct {
	seen sync.Map // key -> time.Time
}

func NewOnlineRegistry() *OnlineRegistry {
	return &OnlineRegistry{}
}

func (r *OnlineRegistry) Add(key string) {
	r.seen.Store(key, time.Now())
}

// Touch refreshes the last seen time of an online device.
func (r *OnlineRegistry) Touch(key string) {
	if _, ok := r.seen.Load(key); ok {
		r.seen.Store(key, time.Now())
	}
}

func (r *OnlineRegistry) Remove(key string) {
	r.seen.Delete(key)
}

func (r *OnlineRegistry) Contains(key string) bool {
	_, ok := r.seen.Load(key)
	return ok
}

func (r *OnlineRegistry) LastSeen(key string) (time.Time, bool) {
	v, ok := r.seen.Load(key)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Keys returns the online devices in sorted order.
func (r *OnlineRegistry) Keys() []string {
	keys := make([]string, 0)
	r.seen.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
