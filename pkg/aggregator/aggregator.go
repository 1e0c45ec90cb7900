// Package aggregator merges the traffic of both camera families into scene
// views and dispatches counter resets to the family of the camera.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/flowcount/pkg/devicelog"
	"github.com/nsyszr/flowcount/pkg/metrics"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/streamcam"
	"github.com/nsyszr/flowcount/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

// NativeCameras is the part of the native bridge the aggregator needs.
type NativeCameras interface {
	IsOnline(key string) bool
	ResetCounter(ctx context.Context, key string) error
}

type TrafficView struct {
	In        int    `json:"in"`
	Out       int    `json:"out"`
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Location  string `json:"location"`
	Online    bool   `json:"online"`
	StreamURL string `json:"streamUrl"`
}

// Outcome is the result of resetting one camera.
type Outcome struct {
	Scene  string
	Camera model.Camera
	Err    error
}

type Options struct {
	StreamURLPrefix string
	Recorder        devicelog.Recorder
	Metrics         *metrics.Metrics
}

type sceneCamera struct {
	scene  string
	camera model.Camera
}

type Aggregator struct {
	scenes  []model.Scene
	streams *traffic.Store
	natives *traffic.Store
	conns   map[string]*streamcam.Conn
	bridge  NativeCameras
	cameras map[string]sceneCamera
	opts    Options
}

func New(scenes []model.Scene, streams, natives *traffic.Store, conns []*streamcam.Conn, bridge NativeCameras, o Options) *Aggregator {
	if o.Recorder == nil {
		o.Recorder = devicelog.Discard()
	}

	a := &Aggregator{
		scenes:  scenes,
		streams: streams,
		natives: natives,
		conns:   make(map[string]*streamcam.Conn, len(conns)),
		bridge:  bridge,
		cameras: make(map[string]sceneCamera),
		opts:    o,
	}
	for _, c := range conns {
		a.conns[c.Camera().Key()] = c
	}
	for _, s := range scenes {
		for _, cam := range s.Cameras {
			a.cameras[cam.Key()] = sceneCamera{scene: s.Name, camera: cam}
		}
	}

	return a
}

// Scenes returns the configured scene topology.
func (a *Aggregator) Scenes() []model.Scene {
	return a.scenes
}

// QueryScene returns the traffic of every camera in the scene, stream
// cameras first.
func (a *Aggregator) QueryScene(name string) ([]TrafficView, error) {
	streams, _ := a.streams.Entries(name)
	natives, _ := a.natives.Entries(name)
	if len(streams) == 0 && len(natives) == 0 {
		return nil, model.ErrSceneNotFound
	}

	views := make([]TrafficView, 0, len(streams)+len(natives))
	for _, e := range streams {
		online := false
		if c, ok := a.conns[e.Camera.Key()]; ok {
			online = c.Online()
		}
		views = append(views, a.view(e, online))
	}
	for _, e := range natives {
		online := a.bridge != nil && a.bridge.IsOnline(e.Camera.Key())
		views = append(views, a.view(e, online))
	}

	return views, nil
}

func (a *Aggregator) view(e model.Entry, online bool) TrafficView {
	return TrafficView{
		In:        e.Counters.In,
		Out:       e.Counters.Out,
		Name:      e.Camera.Name,
		IP:        e.Camera.IP,
		Port:      e.Camera.Port,
		Location:  e.Camera.Location,
		Online:    online,
		StreamURL: a.opts.StreamURLPrefix + e.Camera.RTSPURL(),
	}
}

// ResetByAddress resets the camera listening on ip and port.
func (a *Aggregator) ResetByAddress(ctx context.Context, ip string, port int) error {
	return a.ResetOne(ctx, model.CameraKey(ip, port))
}

// ResetOne resets the counters of one camera and waits for the device to
// confirm.
func (a *Aggregator) ResetOne(ctx context.Context, key string) error {
	sc, ok := a.cameras[key]
	if !ok {
		return model.ErrCameraNotFound
	}

	start := time.Now()
	id, err := a.reset(ctx, sc)
	d := time.Since(start)

	family := sc.camera.Family.String()
	a.opts.Metrics.ResetObserved(family, resultLabel(err), d)

	logger := log.WithFields(log.Fields{
		"scene":    sc.scene,
		"camera":   sc.camera.Name,
		"key":      key,
		"family":   family,
		"command":  id,
		"duration": d,
	})
	if err != nil {
		logger.Warnf("reset failed: %v", err)
		a.opts.Recorder.Record(sc.scene, sc.camera, model.TopicResetFailed, map[string]string{
			"command_id": id.String(),
			"reason":     err.Error(),
		})
		return err
	}

	logger.Info("reset succeeded")
	a.opts.Recorder.Record(sc.scene, sc.camera, model.TopicResetSucceeded, map[string]interface{}{
		"command_id":  id.String(),
		"duration_ms": d.Milliseconds(),
	})
	return nil
}

// reset returns the ID correlating the reset's log lines and events. Stream
// resets use the pending command's ID; native resets have no pending command
// and get a fresh one.
func (a *Aggregator) reset(ctx context.Context, sc sceneCamera) (uuid.UUID, error) {
	key := sc.camera.Key()

	switch sc.camera.Family {
	case model.FamilyStream:
		c, ok := a.conns[key]
		if !ok {
			return uuid.New(), model.ErrDeviceOffline
		}
		id, err := c.Reset(ctx)
		if id == uuid.Nil {
			id = uuid.New()
		}
		return id, err
	case model.FamilyNative:
		id := uuid.New()
		if a.bridge == nil {
			return id, model.ErrDeviceOffline
		}
		return id, a.bridge.ResetCounter(ctx, key)
	}

	return uuid.New(), model.ErrCameraNotFound
}

// ResetAll resets every configured camera concurrently. A failing camera
// does not stop the others; the outcomes are returned in configuration
// order.
func (a *Aggregator) ResetAll(ctx context.Context) []Outcome {
	var cams []sceneCamera
	for _, s := range a.scenes {
		for _, cam := range s.Cameras {
			cams = append(cams, sceneCamera{scene: s.Name, camera: cam})
		}
	}

	outcomes := make([]Outcome, len(cams))
	var wg sync.WaitGroup
	for i, sc := range cams {
		wg.Add(1)
		go func(i int, sc sceneCamera) {
			defer wg.Done()
			outcomes[i] = Outcome{
				Scene:  sc.scene,
				Camera: sc.camera,
				Err:    a.ResetOne(ctx, sc.camera.Key()),
			}
		}(i, sc)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	log.Infof("reset of %d cameras finished, %d failed", len(outcomes), failed)

	return outcomes
}

func resultLabel(err error) string {
	switch err {
	case nil:
		return "ok"
	case model.ErrDeviceOffline:
		return "offline"
	case model.ErrResponseTimeout:
		return "timeout"
	case model.ErrSuperseded:
		return "superseded"
	}
	return "failed"
}
