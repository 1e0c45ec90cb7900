package storage

import "github.com/nsyszr/flowcount/pkg/model"

// Interface is implemented by the storage
type Interface interface {
	Events() EventStore
}

// EventStore is responsible for managing the device Event model
type EventStore interface {
	FetchAll() (map[int32]model.Event, error)
	FetchByCameraKey(key string) (map[int32]model.Event, error)
	FindByID(id int32) (*model.Event, error)
	Create(m *model.Event) error
}
