// Package traffic keeps the latest counters reported by every camera,
// grouped by scene. Writes lock a single camera entry; scenes and the
// camera index are concurrent maps.
package traffic

import (
	"sync"

	"github.com/nsyszr/flowcount/pkg/model"
)

// Observer is called after a write changed the stored counters.
type Observer func(u model.TrafficUpdate)

// UpdateFunc computes the next counters from the current ones. Returning
// false leaves the entry untouched.
type UpdateFunc func(current model.Counters) (model.Counters, bool)

type entry struct {
	sync.RWMutex
	scene    string
	camera   model.Camera
	counters model.Counters
}

func (e *entry) snapshot() model.Entry {
	e.RLock()
	defer e.RUnlock()
	return model.Entry{Camera: e.camera, Counters: e.counters}
}

type sceneEntries struct {
	sync.RWMutex
	order []*entry
	byKey map[string]*entry
}

// Store maps scene names to the cameras tracked in them.
type Store struct {
	family  model.Family
	scenes  sync.Map // scene name -> *sceneEntries
	cameras sync.Map // camera key -> *entry

	obsMu     sync.RWMutex
	observers []Observer
}

// NewStore creates an empty store for cameras of one family.
func NewStore(family model.Family) *Store {
	return &Store{family: family}
}

// Family returns the camera family this store tracks.
func (s *Store) Family() model.Family {
	return s.family
}

// Subscribe registers an observer for counter changes.
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Register starts tracking a camera with zero counters. Already tracked
// cameras keep their values.
func (s *Store) Register(scene string, cam model.Camera) {
	s.entryFor(scene, cam)
}

// Upsert stores the counters for a camera, inserting the camera if it is
// not tracked yet. The last write wins. It reports whether the stored
// values changed.
func (s *Store) Upsert(scene string, cam model.Camera, c model.Counters) bool {
	return s.Update(scene, cam, func(model.Counters) (model.Counters, bool) {
		return c, true
	})
}

// Update applies fn atomically to the camera's entry.
func (s *Store) Update(scene string, cam model.Camera, fn UpdateFunc) bool {
	e := s.entryFor(scene, cam)

	e.Lock()
	next, ok := fn(e.counters)
	next = next.Sanitize()
	changed := ok && next != e.counters
	if changed {
		e.counters = next
	}
	u := model.TrafficUpdate{Scene: e.scene, Camera: e.camera, Counters: e.counters}
	e.Unlock()

	if changed {
		s.notify(u)
	}
	return changed
}

// Lookup finds a tracked camera by key regardless of its scene.
func (s *Store) Lookup(key string) (scene string, out model.Entry, ok bool) {
	v, ok := s.cameras.Load(key)
	if !ok {
		return "", model.Entry{}, false
	}
	e := v.(*entry)
	return e.scene, e.snapshot(), true
}

// Entries returns a snapshot of the scene's entries in insertion order.
// Each entry is consistent on its own; the list as a whole is not taken
// atomically.
func (s *Store) Entries(scene string) ([]model.Entry, bool) {
	v, ok := s.scenes.Load(scene)
	if !ok {
		return nil, false
	}
	se := v.(*sceneEntries)

	se.RLock()
	list := make([]*entry, len(se.order))
	copy(list, se.order)
	se.RUnlock()

	out := make([]model.Entry, 0, len(list))
	for _, e := range list {
		out = append(out, e.snapshot())
	}
	return out, len(out) > 0
}

func (s *Store) entryFor(scene string, cam model.Camera) *entry {
	key := cam.Key()
	if v, ok := s.cameras.Load(key); ok {
		return v.(*entry)
	}

	v, _ := s.scenes.LoadOrStore(scene, &sceneEntries{byKey: make(map[string]*entry)})
	se := v.(*sceneEntries)

	se.Lock()
	defer se.Unlock()
	if e, ok := se.byKey[key]; ok {
		return e
	}

	e := &entry{scene: scene, camera: cam}
	if v, loaded := s.cameras.LoadOrStore(key, e); loaded {
		// Tracked under another scene meanwhile.
		return v.(*entry)
	}
	se.byKey[key] = e
	se.order = append(se.order, e)
	return e
}

func (s *Store) notify(u model.TrafficUpdate) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	for _, o := range observers {
		o(u)
	}
}
