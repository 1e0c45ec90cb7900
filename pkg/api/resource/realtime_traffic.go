package resource

import (
	"time"

	"github.com/nsyszr/flowcount/pkg/model"
)

type RealtimeTrafficResource struct {
	Scene     string    `json:"scene"`
	Camera    string    `json:"camera"`
	Key       string    `json:"key"`
	In        int       `json:"in"`
	Out       int       `json:"out"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRealtimeTraffic(u model.TrafficUpdate, ts time.Time) *RealtimeTrafficResource {
	return &RealtimeTrafficResource{
		Scene:     u.Scene,
		Camera:    u.Camera.Name,
		Key:       u.Camera.Key(),
		In:        u.Counters.In,
		Out:       u.Counters.Out,
		Timestamp: ts.UTC(),
	}
}
