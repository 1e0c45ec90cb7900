package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTraffic struct {
	keys []string
}

func (f *fakeTraffic) ResetByAddress(ctx context.Context, ip string, port int) error {
	key := model.CameraKey(ip, port)
	f.keys = append(f.keys, key)
	if key != "10.0.0.1:5006" {
		return model.ErrCameraNotFound
	}
	return nil
}

func (f *fakeTraffic) ResetAll(ctx context.Context) []aggregator.Outcome {
	return []aggregator.Outcome{
		{Scene: "hall", Camera: model.Camera{Name: "north", IP: "10.0.0.1", Port: 5006}},
		{Scene: "hall", Camera: model.Camera{Name: "gate", IP: "10.0.0.9", Port: 8000}, Err: model.ErrDeviceOffline},
	}
}

func handle(t *testing.T, ctrl *Controller, cmd, data string) *CommandReply {
	out := ctrl.handleMessage(CommandSubject(cmd), []byte(data))
	reply := &CommandReply{}
	require.NoError(t, json.Unmarshal(out, reply))
	return reply
}

func TestHandleReset(t *testing.T) {
	tr := &fakeTraffic{}
	ctrl := New(nil, tr, time.Second)

	reply := handle(t, ctrl, CommandReset, `{"ip":"10.0.0.1","port":5006}`)
	assert.Equal(t, ReplyStatusOK, reply.Status)

	reply = handle(t, ctrl, CommandReset, `{"ip":"10.0.0.2","port":5006}`)
	assert.Equal(t, ReplyStatusError, reply.Status)
	assert.Equal(t, "camera not found", reply.Reason)

	reply = handle(t, ctrl, CommandReset, `{"ip":`)
	assert.Equal(t, "malformed request", reply.Reason)

	reply = handle(t, ctrl, CommandReset, `{"ip":"10.0.0.1"}`)
	assert.Equal(t, ReplyStatusError, reply.Status)

	assert.Equal(t, []string{"10.0.0.1:5006", "10.0.0.2:5006"}, tr.keys)
}

func TestHandleResetAll(t *testing.T) {
	ctrl := New(nil, &fakeTraffic{}, time.Second)

	reply := handle(t, ctrl, CommandResetAll, "")
	assert.Equal(t, ReplyStatusError, reply.Status)
	require.Len(t, reply.Results, 2)
	assert.Equal(t, ReplyStatusOK, reply.Results[0].Status)
	assert.Equal(t, "10.0.0.9:8000", reply.Results[1].Key)
	assert.Equal(t, "device offline", reply.Results[1].Reason)
}

func TestHandleUnknownCommand(t *testing.T) {
	ctrl := New(nil, &fakeTraffic{}, time.Second)

	reply := handle(t, ctrl, "reboot", "")
	assert.Equal(t, ReplyStatusError, reply.Status)
	assert.Equal(t, "unknown command 'reboot'", reply.Reason)
}

func TestSubscribeWithoutConnection(t *testing.T) {
	ctrl := New(nil, &fakeTraffic{}, time.Second)
	assert.Error(t, ctrl.Subscribe())
}
