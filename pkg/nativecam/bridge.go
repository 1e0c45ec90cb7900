// Package nativecam connects native cameras, reached through a vendor
// adapter, to the traffic store.
package nativecam

import (
	"context"
	"sync"
	"time"

	"github.com/nsyszr/flowcount/pkg/devicelog"
	"github.com/nsyszr/flowcount/pkg/metrics"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/pending"
	"github.com/nsyszr/flowcount/pkg/traffic"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultLoginRetry = 5 * time.Second

type Options struct {
	AlarmMode    AlarmMode
	LoginRetry   time.Duration
	ResetTimeout time.Duration
	Recorder     devicelog.Recorder
	Metrics      *metrics.Metrics
}

type sceneCamera struct {
	scene  string
	camera model.Camera
}

type Bridge struct {
	adapter Adapter
	store   *traffic.Store
	online  *OnlineRegistry
	opts    Options

	cameras []sceneCamera
	byKey   map[string]sceneCamera
	serials map[string]string // serial number -> camera key

	sessions sync.Map // camera key -> Session

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge tracks the native cameras of scenes in store and attaches
// itself to the adapter's events.
func NewBridge(adapter Adapter, store *traffic.Store, scenes []model.Scene, o Options) *Bridge {
	if o.AlarmMode == "" {
		o.AlarmMode = AlarmModeRealtime
	}
	if o.LoginRetry <= 0 {
		o.LoginRetry = DefaultLoginRetry
	}
	if o.ResetTimeout <= 0 {
		o.ResetTimeout = pending.DefaultTimeout
	}
	if o.Recorder == nil {
		o.Recorder = devicelog.Discard()
	}

	b := &Bridge{
		adapter: adapter,
		store:   store,
		online:  NewOnlineRegistry(),
		opts:    o,
		byKey:   make(map[string]sceneCamera),
		serials: make(map[string]string),
	}

	for _, s := range scenes {
		for _, cam := range s.CamerasOf(model.FamilyNative) {
			sc := sceneCamera{scene: s.Name, camera: cam}
			b.cameras = append(b.cameras, sc)
			b.byKey[cam.Key()] = sc
			if cam.Serial != "" {
				b.serials[cam.Serial] = cam.Key()
			}
			store.Register(s.Name, cam)
		}
	}

	adapter.Attach(b)

	return b
}

// Online returns the registry of online devices.
func (b *Bridge) Online() *OnlineRegistry {
	return b.online
}

// IsOnline reports whether the camera is registered as online.
func (b *Bridge) IsOnline(key string) bool {
	return b.online.Contains(key)
}

// Start logs in every native camera in the background, retrying failed
// logins until Stop is called.
func (b *Bridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	for _, sc := range b.cameras {
		b.wg.Add(1)
		go b.login(ctx, sc)
	}
}

// Stop ends pending logins and logs out every session.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()

	b.sessions.Range(func(k, v interface{}) bool {
		b.adapter.Logout(v.(Session))
		b.sessions.Delete(k)
		return true
	})
}

func (b *Bridge) login(ctx context.Context, sc sceneCamera) {
	defer b.wg.Done()

	logger := log.WithFields(log.Fields{
		"scene":  sc.scene,
		"camera": sc.camera.Name,
		"key":    sc.camera.Key(),
	})

	for {
		sess, err := b.adapter.Login(ctx, sc.camera)
		if err == nil {
			b.sessions.Store(sc.camera.Key(), sess)
			logger.Info("nativecam login succeeded")
			return
		}

		logger.Warnf("nativecam login failed, retry in %s: %v", b.opts.LoginRetry, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.opts.LoginRetry):
		}
	}
}

func (b *Bridge) resolve(deviceKey string) (sceneCamera, bool) {
	if sc, ok := b.byKey[deviceKey]; ok {
		return sc, true
	}
	if key, ok := b.serials[deviceKey]; ok {
		return b.byKey[key], true
	}
	return sceneCamera{}, false
}

// OnAlarm stores the counters reported by a device.
func (b *Bridge) OnAlarm(deviceKey string, c model.Counters) {
	sc, ok := b.resolve(deviceKey)
	if !ok {
		log.Warnf("nativecam alarm from unknown device '%s' ignored", deviceKey)
		return
	}
	key := sc.camera.Key()
	b.online.Touch(key)

	changed := b.store.Update(sc.scene, sc.camera, func(cur model.Counters) (model.Counters, bool) {
		if b.opts.AlarmMode == AlarmModePeriodic && c.In <= cur.In && c.Out <= cur.Out {
			return cur, false
		}
		return c, true
	})
	if changed {
		b.opts.Metrics.TrafficUpdated(model.FamilyNative.String())
	}

	log.WithFields(log.Fields{
		"camera":  sc.camera.Name,
		"key":     key,
		"in":      c.In,
		"out":     c.Out,
		"changed": changed,
	}).Debug("nativecam alarm")
}

// OnDeviceState tracks devices going online and offline.
func (b *Bridge) OnDeviceState(deviceKey string, online bool) {
	sc, ok := b.resolve(deviceKey)
	if !ok {
		log.Warnf("nativecam state of unknown device '%s' ignored", deviceKey)
		return
	}
	key := sc.camera.Key()

	topic := model.TopicDeviceOffline
	if online {
		topic = model.TopicDeviceOnline
		b.online.Add(key)
	} else {
		b.online.Remove(key)
	}

	b.opts.Metrics.NativeOnline(sc.camera.Name, online)
	b.opts.Recorder.Record(sc.scene, sc.camera, topic, nil)
	log.Infof("nativecam device %s (%s) is %s", sc.camera.Name, key, topic)
}

// ResetCounter resets the device counters synchronously.
func (b *Bridge) ResetCounter(ctx context.Context, key string) error {
	sc, ok := b.byKey[key]
	if !ok {
		return model.ErrCameraNotFound
	}
	if !b.online.Contains(key) {
		return model.ErrDeviceOffline
	}
	v, ok := b.sessions.Load(key)
	if !ok || !b.adapter.IsOnline(key) {
		return model.ErrDeviceOffline
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.ResetTimeout)
	defer cancel()

	done, err := b.adapter.ResetCounter(ctx, v.(Session))
	if err != nil {
		log.Errorf("nativecam reset of %s failed: %v", key, err)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return model.ErrResponseTimeout
		}
		return model.ErrResetFailed
	}
	if !done {
		return model.ErrResetFailed
	}

	if b.opts.AlarmMode == AlarmModePeriodic {
		// Device counters restart at zero; let the next periodic alarm pass.
		b.store.Upsert(sc.scene, sc.camera, model.Counters{})
	}
	return nil
}

// ReportOnline logs the online state of every native camera.
func (b *Bridge) ReportOnline() {
	for _, sc := range b.cameras {
		key := sc.camera.Key()
		online := b.online.Contains(key)
		b.opts.Metrics.NativeOnline(sc.camera.Name, online)

		entry := log.WithFields(log.Fields{
			"scene":  sc.scene,
			"camera": sc.camera.Name,
			"key":    key,
		})
		if online {
			seen, _ := b.online.LastSeen(key)
			entry.WithField("last_seen", seen.Format(time.RFC3339)).Info("nativecam device online")
		} else {
			entry.Warn("nativecam device offline")
		}
	}
}
