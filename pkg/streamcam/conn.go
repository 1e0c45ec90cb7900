// Package streamcam drives the login and polling protocol of stream
// cameras. One Conn exists per configured camera; it holds a session while
// the camera's transport is active.
package streamcam

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/flowcount/pkg/devicelog"
	"github.com/nsyszr/flowcount/pkg/metrics"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/pending"
	"github.com/nsyszr/flowcount/pkg/streamcam/proto"
	"github.com/nsyszr/flowcount/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

// DefaultPollInterval is the period of person count requests.
const DefaultPollInterval = 500 * time.Millisecond

type Options struct {
	PollInterval time.Duration
	ResetTimeout time.Duration
	Recorder     devicelog.Recorder
	Metrics      *metrics.Metrics
}

type Conn struct {
	sync.Mutex
	scene     string
	camera    model.Camera
	transport atomic.Value // transportRef
	store     *traffic.Store
	pending   *pending.Registry
	recorder  devicelog.Recorder
	metrics   *metrics.Metrics

	pollInterval time.Duration
	resetTimeout time.Duration

	sess *session
	// deferred runs once the lock is released, see unlock.
	deferred []func()
}

type transportRef struct {
	t Transport
}

// NewConn creates the protocol handler of one stream camera and starts
// tracking the camera in store.
func NewConn(scene string, cam model.Camera, store *traffic.Store, reg *pending.Registry, o Options) *Conn {
	c := &Conn{
		scene:        scene,
		camera:       cam,
		store:        store,
		pending:      reg,
		recorder:     o.Recorder,
		metrics:      o.Metrics,
		pollInterval: o.PollInterval,
		resetTimeout: o.ResetTimeout,
	}
	if c.recorder == nil {
		c.recorder = devicelog.Discard()
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.resetTimeout <= 0 {
		c.resetTimeout = pending.DefaultTimeout
	}

	store.Register(scene, cam)

	return c
}

// Attach sets the transport. It must be called before the transport is
// started.
func (c *Conn) Attach(t Transport) {
	c.transport.Store(transportRef{t: t})
}

func (c *Conn) Scene() string {
	return c.scene
}

func (c *Conn) Camera() model.Camera {
	return c.camera
}

// State returns the state of the current session, StateClosed if there is
// none.
func (c *Conn) State() State {
	c.Lock()
	defer c.Unlock()
	if c.sess == nil {
		return StateClosed
	}
	return c.sess.state
}

// Online reports whether the camera's transport is active.
func (c *Conn) Online() bool {
	t := c.currentTransport()
	return t != nil && t.IsActive()
}

func (c *Conn) currentTransport() Transport {
	ref, _ := c.transport.Load().(transportRef)
	return ref.t
}

// unlock releases the lock and then runs the work queued by later. Event
// recording and store observers do I/O and never run under the lock.
func (c *Conn) unlock() {
	deferred := c.deferred
	c.deferred = nil
	c.Unlock()

	for _, fn := range deferred {
		fn()
	}
}

// later queues fn until unlock. It must be called with the lock held.
func (c *Conn) later(fn func()) {
	c.deferred = append(c.deferred, fn)
}

// record queues a device event. It must be called with the lock held.
func (c *Conn) record(topic string, details interface{}) {
	c.later(func() {
		c.recorder.Record(c.scene, c.camera, topic, details)
	})
}

func (c *Conn) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"scene":  c.scene,
		"camera": c.camera.Name,
		"key":    c.camera.Key(),
	})
}

// OnActive starts a new session and sends the login.
func (c *Conn) OnActive() {
	c.Lock()
	defer c.unlock()

	if c.sess != nil {
		c.closeSession(c.sess, "replaced by new connection")
	}

	sess := newSession()
	c.sess = sess
	c.metrics.SessionTransition("", sess.state.String())
	c.record(model.TopicSessionConnected, nil)
	c.logger().Info("streamcam connected, sending login")

	t := c.currentTransport()
	data, err := proto.MarshalLogin(c.camera.UserName, c.camera.Password)
	if err == nil {
		err = t.WriteAndFlush(data)
	}
	if err != nil {
		c.logger().Errorf("streamcam failed to send login: %v", err)
		c.closeSession(sess, "login not sent")
		go t.Close()
		return
	}

	c.transition(sess, StateLoginSent)
}

// OnMessage decodes a device message and dispatches it by action.
func (c *Conn) OnMessage(data []byte) {
	msg, err := proto.UnmarshalMessage(data)
	if err != nil {
		c.dropMessage(err.Error(), data)
		return
	}

	switch msg.Action {
	case proto.ActionLogin:
		c.handleMessage(msg, c.ensureState(StateLoginSent, c.loginHandler()))
	case proto.ActionGetPersonCount:
		c.handleMessage(msg, c.ensureState(StateAuthenticated, c.personCountHandler()))
	case proto.ActionClearPersonCount:
		c.handleMessage(msg, c.ensureState(StateAuthenticated, c.clearHandler()))
	default:
		c.dropMessage("unknown action '"+msg.Action.String()+"'", data)
	}
}

// OnIdle ends the session after the transport saw no traffic for too long.
func (c *Conn) OnIdle() {
	c.logger().Warn("streamcam connection idle, closing")
	c.terminate("idle timeout")
}

// OnError ends the session after a transport failure.
func (c *Conn) OnError(err error) {
	c.logger().Errorf("streamcam transport failed: %v", err)
	c.terminate("transport error")
}

// OnInactive destroys the session once the transport connection is gone.
func (c *Conn) OnInactive() {
	c.Lock()
	defer c.unlock()
	if c.sess != nil {
		c.closeSession(c.sess, "connection closed")
	}
}

// Reset clears the device counters and waits for the acknowledgement. It
// returns the ID of the issued command, uuid.Nil if none was issued. On a
// response timeout the connection is closed so the next connection starts
// with a fresh login.
func (c *Conn) Reset(ctx context.Context) (uuid.UUID, error) {
	t := c.currentTransport()
	if t == nil || !t.IsActive() {
		return uuid.Nil, model.ErrDeviceOffline
	}

	data, err := proto.MarshalClearPersonCount()
	if err != nil {
		return uuid.Nil, err
	}

	// Register before writing, the reply may arrive right after the write.
	cmd := c.pending.Issue(c.camera.Key())
	logger := c.logger().WithField("command", cmd.ID)
	if err := t.WriteAndFlush(data); err != nil {
		c.pending.Cancel(cmd)
		logger.Warnf("streamcam failed to send clear: %v", err)
		return cmd.ID, model.ErrDeviceOffline
	}
	logger.Debug("streamcam clear sent")

	err = c.pending.Await(ctx, cmd, c.resetTimeout)
	if err == model.ErrResponseTimeout {
		logger.Warnf("streamcam got no clear response within %s, closing", c.resetTimeout)
		t.Close()
	}
	return cmd.ID, err
}

func (c *Conn) terminate(reason string) {
	c.Lock()
	if c.sess != nil {
		c.closeSession(c.sess, reason)
	}
	c.unlock()

	t := c.currentTransport()
	if t != nil {
		t.Close()
	}
}

// transition and closeSession must be called with the lock held.
func (c *Conn) transition(sess *session, to State) {
	from := sess.state
	sess.state = to
	sess.since = time.Now()
	c.metrics.SessionTransition(from.String(), to.String())
	c.logger().Debugf("streamcam session %s -> %s", from, to)
}

func (c *Conn) closeSession(sess *session, reason string) {
	c.metrics.SessionTransition(sess.state.String(), "")
	sess.state = StateClosed
	if c.sess == sess {
		c.sess = nil
	}
	c.record(model.TopicSessionClosed, map[string]string{"reason": reason})
	c.logger().Infof("streamcam session closed: %s", reason)
}

func (c *Conn) dropMessage(reason string, data []byte) {
	c.metrics.MessageDropped()
	c.logger().Warnf("streamcam dropped message (%s): %s", reason, string(data))
}

// poll requests the person count until the session leaves
// StateAuthenticated. Each tick checks the session itself.
func (c *Conn) poll(sess *session) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for c.pollOnce(sess) {
		<-ticker.C
	}
	c.logger().Debug("streamcam polling stopped")
}

func (c *Conn) pollOnce(sess *session) bool {
	c.Lock()
	alive := sess.state == StateAuthenticated
	c.Unlock()

	t := c.currentTransport()
	if !alive || !t.IsActive() {
		return false
	}

	data, err := proto.MarshalGetPersonCount()
	if err == nil {
		err = t.WriteAndFlush(data)
	}
	if err != nil {
		c.logger().Warnf("streamcam failed to send person count request: %v", err)
	}
	return true
}
