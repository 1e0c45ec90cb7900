package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/nsyszr/flowcount/config"
	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/client"
	"github.com/nsyszr/flowcount/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct{}

func (fakeClient) Scenes() ([]*resource.SceneResource, error) {
	return []*resource.SceneResource{{
		Name:    "hall",
		Cameras: []*resource.CameraResource{{Name: "north", IP: "10.0.0.1", Port: 5006, Type: "stream", Location: "door"}},
	}}, nil
}

func (fakeClient) Traffic(scene string) ([]aggregator.TrafficView, error) {
	if scene != "hall" {
		return nil, &client.APIError{Code: 404, Msg: "scene not found"}
	}
	return []aggregator.TrafficView{
		{Name: "north", IP: "10.0.0.1", Port: 5006, Online: true, In: 3, Out: 1},
		{Name: "gate", IP: "10.0.0.9", Port: 8000, In: 2, Out: 2},
	}, nil
}

func (fakeClient) Clean(ip string, port int) error {
	return nil
}

func (fakeClient) CleanAll() ([]*resource.CleanOutcomeResource, error) {
	return []*resource.CleanOutcomeResource{
		{Scene: "hall", Camera: "north", IP: "10.0.0.1", Port: 5006, Success: true},
		{Scene: "hall", Camera: "gate", IP: "10.0.0.9", Port: 8000, Reason: "device offline"},
	}, nil
}

func newTestSceneHandler() (*SceneHandler, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := newSceneHandler(&config.Config{})
	h.out = buf
	h.newClient = func() client.Interface { return fakeClient{} }
	return h, buf
}

func TestSceneList(t *testing.T) {
	h, buf := newTestSceneHandler()

	require.NoError(t, h.list())
	assert.Contains(t, buf.String(), "hall")
	assert.Contains(t, buf.String(), "10.0.0.1:5006")
}

func TestSceneTraffic(t *testing.T) {
	h, buf := newTestSceneHandler()

	require.NoError(t, h.traffic("hall"))
	assert.Regexp(t, `TOTAL\s+5\s+3`, buf.String())

	err := h.traffic("lobby")
	assert.True(t, client.IsAPIError(err))
}

func TestSceneTrafficJSON(t *testing.T) {
	h, buf := newTestSceneHandler()
	h.JSON = true

	require.NoError(t, h.traffic("hall"))
	assert.Contains(t, buf.String(), `"streamUrl"`)
}

func TestSceneCleanAll(t *testing.T) {
	h, buf := newTestSceneHandler()

	require.NoError(t, h.cleanAll())
	assert.Regexp(t, `north\s+10.0.0.1:5006\s+ok`, buf.String())
	assert.Regexp(t, `gate\s+10.0.0.9:8000\s+device offline`, buf.String())
}

func TestPrintTraffic(t *testing.T) {
	h, buf := newTestSceneHandler()

	h.printTraffic(&notify.TrafficMessage{
		Scene:     "hall",
		Camera:    "north",
		Key:       "10.0.0.1:5006",
		In:        7,
		Out:       5,
		Timestamp: time.Now(),
	})
	assert.Contains(t, buf.String(), "hall north (10.0.0.1:5006) in=7 out=5")
}
