package notify

import (
	"fmt"

	nats "github.com/nats-io/nats.go"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/pkg/errors"
)

const natsSubjectPrefix = "flowcount.v1"

type natsPublisher struct {
	nc *nats.Conn
}

// NewNATS publishes on an established NATS connection. The connection is
// drained on Close.
func NewNATS(nc *nats.Conn) Publisher {
	return &natsPublisher{nc: nc}
}

func natsTrafficSubject(scene string) string {
	return fmt.Sprintf("%s.%s.traffic", natsSubjectPrefix, segment(scene, ".*>"))
}

func natsEventSubject(scene, topic string) string {
	return fmt.Sprintf("%s.%s.events.%s", natsSubjectPrefix, segment(scene, ".*>"), segment(topic, "*>"))
}

func (p *natsPublisher) PublishEvent(m *model.Event) error {
	data, err := marshalEvent(m)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event message")
	}
	if err := p.nc.Publish(natsEventSubject(m.Scene, m.Topic), data); err != nil {
		return errors.Wrap(err, "failed to publish event message")
	}
	return nil
}

func (p *natsPublisher) PublishTraffic(u model.TrafficUpdate) error {
	data, err := marshalTraffic(u)
	if err != nil {
		return errors.Wrap(err, "failed to marshal traffic message")
	}
	if err := p.nc.Publish(natsTrafficSubject(u.Scene), data); err != nil {
		return errors.Wrap(err, "failed to publish traffic message")
	}
	return nil
}

func (p *natsPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}

// NATSTrafficSubject is the subject carrying the traffic of scene, or of all
// scenes if scene is empty.
func NATSTrafficSubject(scene string) string {
	if scene == "" {
		return natsSubjectPrefix + ".*.traffic"
	}
	return natsTrafficSubject(scene)
}
