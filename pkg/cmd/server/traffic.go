package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/nsyszr/flowcount/config"
	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/api"
	"github.com/nsyszr/flowcount/pkg/controller"
	"github.com/nsyszr/flowcount/pkg/devicelog"
	"github.com/nsyszr/flowcount/pkg/metrics"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/nativecam"
	"github.com/nsyszr/flowcount/pkg/nativecam/isapi"
	"github.com/nsyszr/flowcount/pkg/notify"
	"github.com/nsyszr/flowcount/pkg/pending"
	"github.com/nsyszr/flowcount/pkg/scheduler"
	"github.com/nsyszr/flowcount/pkg/storage"
	"github.com/nsyszr/flowcount/pkg/storage/memory"
	"github.com/nsyszr/flowcount/pkg/storage/postgres"
	"github.com/nsyszr/flowcount/pkg/streamcam"
	"github.com/nsyszr/flowcount/pkg/streamcam/tcp"
	"github.com/nsyszr/flowcount/pkg/traffic"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// commandTimeout bounds a reset command received over NATS.
const commandTimeout = 30 * time.Second

type trafficServer struct {
	c      *config.Config
	quitCh chan bool
	doneCh chan bool

	db       *sqlx.DB
	nc       *nats.Conn
	store    storage.Interface
	pub      notify.Publisher
	registry *prometheus.Registry
	feed     *api.Feed

	clients []*tcp.Client
	adapter *isapi.Adapter
	bridge  *nativecam.Bridge
	agg     *aggregator.Aggregator
	sched   *scheduler.Scheduler
	ctrl    *controller.Controller
}

func setupLogging(c *config.Config) {
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func newTrafficServer(c *config.Config) (*trafficServer, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &trafficServer{
		c:        c,
		quitCh:   make(chan bool),
		doneCh:   make(chan bool),
		registry: prometheus.NewRegistry(),
		feed:     api.NewFeed(),
	}

	if err := s.openStore(); err != nil {
		return nil, err
	}
	if err := s.openPublisher(); err != nil {
		s.close()
		return nil, err
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(s.registry)
	if err != nil {
		s.close()
		return nil, errors.Wrap(err, "failed to register metrics")
	}

	recorder := devicelog.New(s.store, s.pub)

	streams := traffic.NewStore(model.FamilyStream)
	natives := traffic.NewStore(model.FamilyNative)
	for _, ts := range []*traffic.Store{streams, natives} {
		ts.Subscribe(s.publishTraffic)
		ts.Subscribe(s.feed.Update)
	}

	reg := pending.NewRegistry()
	if err := metrics.WatchPending(s.registry, reg.Len); err != nil {
		s.close()
		return nil, errors.Wrap(err, "failed to register metrics")
	}

	var conns []*streamcam.Conn
	for _, scene := range c.Scenes {
		for _, cam := range scene.CamerasOf(model.FamilyStream) {
			conn := streamcam.NewConn(scene.Name, cam, streams, reg, streamcam.Options{
				PollInterval: c.PollInterval,
				ResetTimeout: c.ResetTimeout,
				Recorder:     recorder,
				Metrics:      m,
			})
			client := tcp.NewClient(cam.Key(), conn, tcp.Options{
				ConnectTimeout: c.ConnectTimeout,
				ReconnectDelay: c.ReconnectDelay,
				IdleTimeout:    c.IdleTimeout,
			})
			conn.Attach(client)

			conns = append(conns, conn)
			s.clients = append(s.clients, client)
		}
	}

	alarmMode, _ := nativecam.ParseAlarmMode(c.NativeAlarmMode)
	s.adapter = isapi.New(isapi.Options{
		Timeout: c.NativeHTTPTimeout,
	})
	s.bridge = nativecam.NewBridge(s.adapter, natives, c.Scenes, nativecam.Options{
		AlarmMode:    alarmMode,
		LoginRetry:   c.NativeLoginRetry,
		ResetTimeout: c.ResetTimeout,
		Recorder:     recorder,
		Metrics:      m,
	})

	s.agg = aggregator.New(c.Scenes, streams, natives, conns, s.bridge, aggregator.Options{
		StreamURLPrefix: c.StreamURLPrefix,
		Recorder:        recorder,
		Metrics:         m,
	})

	if s.nc != nil {
		s.ctrl = controller.New(s.nc, s.agg, commandTimeout)
	}

	s.sched = scheduler.New()
	for _, spec := range c.ResetCron {
		if err := s.sched.AddCron("reset-all", spec, func(ctx context.Context) {
			s.agg.ResetAll(ctx)
		}); err != nil {
			s.close()
			return nil, err
		}
	}
	if c.OnlineReportInterval > 0 {
		s.sched.AddEvery("online-report", c.OnlineReportInterval, func(context.Context) {
			s.bridge.ReportOnline()
		})
	}

	return s, nil
}

func (s *trafficServer) openStore() error {
	if s.c.DatabaseURL == "" {
		log.Info("Using in-memory event store")
		s.store = memory.NewStore()
		return nil
	}

	db, err := sqlx.Connect("postgres", s.c.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	s.db = db
	s.store = postgres.NewStore(db)
	return nil
}

func (s *trafficServer) openPublisher() error {
	switch s.c.NotifyDriver {
	case config.NotifyNATS:
		nc, err := nats.Connect(s.c.NATSServerURL,
			nats.DrainTimeout(10*time.Second),
			nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
				log.Errorf("nats error: %v", err)
			}),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warnf("nats disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Infof("nats reconnected to %s", nc.ConnectedUrl())
			}))
		if err != nil {
			return errors.Wrap(err, "failed to connect to nats")
		}
		s.nc = nc
		s.pub = notify.NewNATS(nc)
	case config.NotifyMQTT:
		pub, err := notify.NewMQTT(notify.MQTTOptions{
			BrokerURL:   s.c.MQTTServerURL,
			ClientID:    s.c.MQTTClientID,
			TopicPrefix: s.c.MQTTTopicPrefix,
		})
		if err != nil {
			return err
		}
		s.pub = pub
	default:
		s.pub = notify.Nop()
	}
	return nil
}

func (s *trafficServer) publishTraffic(u model.TrafficUpdate) {
	if err := s.pub.PublishTraffic(u); err != nil {
		log.Warnf("failed to publish traffic of %s: %v", u.Camera.Key(), err)
	}
}

func (s *trafficServer) Serve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, client := range s.clients {
		client.Start(ctx)
	}
	s.bridge.Start(ctx)
	s.sched.Start()
	if s.ctrl != nil {
		if err := s.ctrl.Subscribe(); err != nil {
			log.Errorf("failed to subscribe to nats commands: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(api.Logger())

	apiHandler := api.NewHandler(s.agg, s.store, s.feed, s.registry)
	apiHandler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			log.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(ctxShutdown); err != nil {
		log.Error(err)
	}

	if s.ctrl != nil {
		s.ctrl.Unsubscribe()
	}
	s.sched.Stop()
	s.bridge.Stop()
	s.adapter.Wait()
	for _, client := range s.clients {
		client.Stop()
	}
	s.close()

	// We've done!
	s.doneCh <- true
}

func (s *trafficServer) close() {
	if s.pub != nil {
		s.pub.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *trafficServer) Shutdown() {
	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(15 * time.Second):
		log.Error("Shutdown server failed")
	}
}

func RunServeTraffic(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging(c)

		s, err := newTrafficServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt, syscall.SIGTERM)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
