package natsio

import (
	"encoding/json"

	nats "github.com/nats-io/nats.go"
	"github.com/nsyszr/flowcount/pkg/client"
	"github.com/nsyszr/flowcount/pkg/notify"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	URL string
}

// conn is the part of *nats.Conn the watcher uses.
type conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

type natsClient struct {
	cfg *Config
	nc  conn
}

func New(cfg *Config) (client.Watcher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	return &natsClient{
		cfg: cfg,
		nc:  nc,
	}, nil
}

// WatchTraffic calls fn for every traffic message of scene, or of all scenes
// if scene is empty.
func (c *natsClient) WatchTraffic(scene string, fn func(m *notify.TrafficMessage)) (func() error, error) {
	sub, err := c.nc.Subscribe(notify.NATSTrafficSubject(scene), trafficHandler(fn))
	if err != nil {
		return nil, err
	}

	return sub.Unsubscribe, nil
}

func trafficHandler(fn func(m *notify.TrafficMessage)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		m := &notify.TrafficMessage{}
		if err := json.Unmarshal(msg.Data, m); err != nil {
			log.Warnf("natsio: ignored malformed traffic message on %s: %v", msg.Subject, err)
			return
		}
		fn(m)
	}
}

func (c *natsClient) Close() {
	c.nc.Close()
}
