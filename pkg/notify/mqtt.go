package notify

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const mqttPublishTimeout = 2 * time.Second

type MQTTOptions struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

type mqttPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTT connects to the broker and returns a publisher using it.
func NewMQTT(o MQTTOptions) (Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(o.BrokerURL).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("notify lost connection to mqtt broker: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", o.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return newMQTTPublisher(client, o.TopicPrefix), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string) *mqttPublisher {
	return &mqttPublisher{client: client, prefix: prefix}
}

func (p *mqttPublisher) topic(scene, key, kind string) string {
	return fmt.Sprintf("%s/%s/%s/%s", p.prefix, segment(scene, "/+#"), segment(key, "/+#"), kind)
}

func (p *mqttPublisher) publish(topic string, data []byte) error {
	token := p.client.Publish(topic, 0, false, data)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

func (p *mqttPublisher) PublishEvent(m *model.Event) error {
	data, err := marshalEvent(m)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event message")
	}
	return p.publish(p.topic(m.Scene, m.CameraKey, "events"), data)
}

func (p *mqttPublisher) PublishTraffic(u model.TrafficUpdate) error {
	data, err := marshalTraffic(u)
	if err != nil {
		return errors.Wrap(err, "failed to marshal traffic message")
	}
	return p.publish(p.topic(u.Scene, u.Camera.Key(), "traffic"), data)
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(250)
}
