package client

import (
	"fmt"

	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/notify"
)

// Interface talks to the REST surface of a running server.
type Interface interface {
	Scenes() ([]*resource.SceneResource, error)
	Traffic(scene string) ([]aggregator.TrafficView, error)
	Clean(ip string, port int) error
	CleanAll() ([]*resource.CleanOutcomeResource, error)
}

// Watcher follows the traffic published on the message broker.
type Watcher interface {
	WatchTraffic(scene string, fn func(m *notify.TrafficMessage)) (stop func() error, err error)
	Close()
}

// APIError is a failure reported by the server.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Msg)
}

func IsAPIError(e error) bool {
	_, ok := e.(*APIError)
	return ok
}
