// Package isapi implements the native camera adapter over the Hikvision
// ISAPI HTTP interface.
package isapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/nativecam"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout        = 3 * time.Second
	DefaultReconnectDelay = 5 * time.Second
)

type Options struct {
	Scheme         string
	Timeout        time.Duration
	ReconnectDelay time.Duration
}

type session struct {
	camera model.Camera
	info   DeviceInfo
	client *resty.Client // bounded requests
	stream *resty.Client // long lived alert stream
	cancel context.CancelFunc
}

type Adapter struct {
	opts Options

	mu      sync.RWMutex
	handler nativecam.EventHandler

	online sync.Map // camera key -> bool
	wg     sync.WaitGroup
}

func New(o Options) *Adapter {
	if o.Scheme == "" {
		o.Scheme = "http"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	return &Adapter{opts: o}
}

func (a *Adapter) Attach(h nativecam.EventHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

func (a *Adapter) eventHandler() nativecam.EventHandler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handler
}

func (a *Adapter) baseURL(cam model.Camera) string {
	port := cam.HTTPPort
	if port == 0 {
		port = 80
	}
	return fmt.Sprintf("%s://%s", a.opts.Scheme, net.JoinHostPort(cam.IP, strconv.Itoa(port)))
}

func (a *Adapter) newClient(cam model.Camera) *resty.Client {
	return resty.New().
		SetBaseURL(a.baseURL(cam)).
		SetDigestAuth(cam.UserName, cam.Password).
		SetHeader("Accept", "application/xml")
}

// Login reads the device info and starts listening to the device's alert
// stream.
func (a *Adapter) Login(ctx context.Context, cam model.Camera) (nativecam.Session, error) {
	client := a.newClient(cam).SetTimeout(a.opts.Timeout)

	resp, err := client.R().SetContext(ctx).Get(pathDeviceInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to request device info of %s", cam.Key())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("device info of %s answered %s", cam.Key(), resp.Status())
	}

	var info DeviceInfo
	if err := xml.Unmarshal(resp.Body(), &info); err != nil {
		return nil, errors.Wrapf(err, "failed to decode device info of %s", cam.Key())
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		camera: cam,
		info:   info,
		client: client,
		stream: a.newClient(cam),
		cancel: cancel,
	}

	log.WithFields(log.Fields{
		"key":    cam.Key(),
		"model":  info.Model,
		"serial": info.SerialNumber,
	}).Info("isapi device logged in")

	a.wg.Add(1)
	go a.watchAlerts(sctx, s)

	return s, nil
}

// Logout stops the alert stream of the session.
func (a *Adapter) Logout(sess nativecam.Session) {
	if s, ok := sess.(*session); ok {
		s.cancel()
	}
}

// Wait blocks until all alert streams ended.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// ResetCounter resets the people counting of channel 1.
func (a *Adapter) ResetCounter(ctx context.Context, sess nativecam.Session) (bool, error) {
	s, ok := sess.(*session)
	if !ok {
		return false, fmt.Errorf("invalid isapi session %T", sess)
	}

	resp, err := s.client.R().SetContext(ctx).Put(pathResetCount)
	if err != nil {
		return false, errors.Wrapf(err, "failed to reset counter of %s", s.camera.Key())
	}

	var status ResponseStatus
	if err := xml.Unmarshal(resp.Body(), &status); err != nil {
		return false, errors.Wrapf(err, "failed to decode reset response of %s (%s)", s.camera.Key(), resp.Status())
	}
	if status.StatusCode != statusCodeOK {
		log.Warnf("isapi reset of %s answered %d %s", s.camera.Key(), status.StatusCode, status.StatusString)
	}

	return status.StatusCode == statusCodeOK, nil
}

func (a *Adapter) IsOnline(deviceKey string) bool {
	v, ok := a.online.Load(deviceKey)
	return ok && v.(bool)
}

func (a *Adapter) setOnline(key string, online bool) {
	prev, loaded := a.online.Swap(key, online)
	if !loaded && !online {
		return
	}
	if loaded && prev.(bool) == online {
		return
	}
	if h := a.eventHandler(); h != nil {
		h.OnDeviceState(key, online)
	}
}

func (a *Adapter) watchAlerts(ctx context.Context, s *session) {
	defer a.wg.Done()
	key := s.camera.Key()

	for {
		err := a.readAlerts(ctx, s)
		a.setOnline(key, false)

		if ctx.Err() != nil {
			log.Debugf("isapi alert stream of %s stopped", key)
			return
		}
		log.Warnf("isapi alert stream of %s ended, reconnect in %s: %v", key, a.opts.ReconnectDelay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.opts.ReconnectDelay):
		}
	}
}

func (a *Adapter) readAlerts(ctx context.Context, s *session) error {
	resp, err := s.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pathAlertStream)
	if err != nil {
		return errors.Wrap(err, "failed to open alert stream")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return fmt.Errorf("alert stream answered %s", resp.Status())
	}

	_, params, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		return fmt.Errorf("alert stream is not multipart: %q", resp.Header().Get("Content-Type"))
	}

	a.setOnline(s.camera.Key(), true)

	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read alert")
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return errors.Wrap(err, "failed to read alert")
		}
		a.handleAlert(s, data)
	}
}

func (a *Adapter) handleAlert(s *session, data []byte) {
	var alert EventNotificationAlert
	if err := xml.Unmarshal(data, &alert); err != nil {
		log.Debugf("isapi ignored non xml alert of %s", s.camera.Key())
		return
	}

	if !strings.EqualFold(alert.EventType, eventTypePeopleCounting) || alert.PeopleCounting == nil {
		return
	}

	h := a.eventHandler()
	if h == nil {
		return
	}
	h.OnAlarm(s.camera.Key(), model.Counters{
		In:  int(alert.PeopleCounting.Enter),
		Out: int(alert.PeopleCounting.Exit),
	})
}
