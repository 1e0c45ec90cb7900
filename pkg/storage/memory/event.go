package memory

import (
	"sync"
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/storage"
)

// maxEvents bounds the memory store; the oldest events are evicted first.
const maxEvents = 10000

type eventStore struct {
	store  map[int32]model.Event
	nextID int32
	minID  int32
	sync.RWMutex
}

func newEventStore() *eventStore {
	return &eventStore{
		store:  make(map[int32]model.Event),
		nextID: 1,
		minID:  1,
	}
}

func (s *eventStore) FetchAll() (map[int32]model.Event, error) {
	return s.fetch(func(model.Event) bool { return true })
}

func (s *eventStore) FetchByCameraKey(key string) (map[int32]model.Event, error) {
	return s.fetch(func(m model.Event) bool { return m.CameraKey == key })
}

func (s *eventStore) fetch(match func(model.Event) bool) (map[int32]model.Event, error) {
	s.RLock()
	defer s.RUnlock()
	models := make(map[int32]model.Event)

	for id, m := range s.store {
		if match(m) {
			models[id] = m
		}
	}

	return models, nil
}

func (s *eventStore) FindByID(id int32) (*model.Event, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *eventStore) Create(m *model.Event) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	if m.Timestamp.IsZero() {
		m.Timestamp = m.CreatedAt
	}

	s.store[m.ID] = *m

	for len(s.store) > maxEvents {
		delete(s.store, s.minID)
		s.minID++
	}

	return nil
}

func (s *eventStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
