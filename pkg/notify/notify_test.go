package notify

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	mqtt.Token
}

func (doneToken) Wait() bool { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mqtt.Client
	messages []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func TestNATSSubjects(t *testing.T) {
	assert.Equal(t, "flowcount.v1.main_hall.traffic", natsTrafficSubject("main hall"))
	assert.Equal(t, "flowcount.v1.a_b.events.session.closed", natsEventSubject("a.b", model.TopicSessionClosed))
	assert.Equal(t, "flowcount.v1._.traffic", natsTrafficSubject(""))
	assert.Equal(t, "flowcount.v1.*.traffic", NATSTrafficSubject(""))
	assert.Equal(t, "flowcount.v1.lobby.traffic", NATSTrafficSubject("lobby"))
}

func TestMQTTPublishTraffic(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "flowcount")

	err := p.PublishTraffic(model.TrafficUpdate{
		Scene:    "hall/1",
		Camera:   model.Camera{Name: "north", IP: "10.0.0.1", Port: 5006},
		Counters: model.Counters{In: 7, Out: 5},
	})
	require.NoError(t, err)
	require.Len(t, client.messages, 1)

	msg := client.messages[0]
	assert.Equal(t, "flowcount/hall_1/10.0.0.1:5006/traffic", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.False(t, msg.retained)

	var out TrafficMessage
	require.NoError(t, json.Unmarshal(msg.payload, &out))
	assert.Equal(t, "north", out.Camera)
	assert.Equal(t, 7, out.In)
	assert.Equal(t, 5, out.Out)
}

func TestMQTTPublishEvent(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "flowcount")

	err := p.PublishEvent(&model.Event{
		Scene:     "hall",
		CameraKey: "10.0.0.1:5006",
		Family:    "stream",
		Topic:     model.TopicResetFailed,
		Details:   `{"reason":"reset failed"}`,
	})
	require.NoError(t, err)
	require.Len(t, client.messages, 1)
	assert.Equal(t, "flowcount/hall/10.0.0.1:5006/events", client.messages[0].topic)

	var out EventMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &out))
	assert.Equal(t, SourceTypeCamera, out.SourceType)
	assert.JSONEq(t, `{"reason":"reset failed"}`, string(out.Details))
}

func TestMarshalEventSkipsInvalidDetails(t *testing.T) {
	data, err := marshalEvent(&model.Event{Topic: model.TopicDeviceOnline, Details: "not json"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "details")
}

func TestNopPublisher(t *testing.T) {
	p := Nop()
	assert.NoError(t, p.PublishEvent(&model.Event{}))
	assert.NoError(t, p.PublishTraffic(model.TrafficUpdate{}))
	p.Close()
}
