package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Traffic is the traffic service the API exposes
type Traffic interface {
	Scenes() []model.Scene
	QueryScene(name string) ([]aggregator.TrafficView, error)
	ResetByAddress(ctx context.Context, ip string, port int) error
	ResetAll(ctx context.Context) []aggregator.Outcome
}

// Handler contains all properties to serve the API
type Handler struct {
	traffic  Traffic
	store    storage.Interface
	feed     *Feed
	gatherer prometheus.Gatherer
}

// NewHandler create a new API handler
func NewHandler(traffic Traffic, store storage.Interface, feed *Feed, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		traffic:  traffic,
		store:    store,
		feed:     feed,
		gatherer: gatherer,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")

	scene := e.Group("/scene")
	scene.GET("/all", h.handleFetchScenes)
	scene.GET("/traffic/:name", h.handleFetchTraffic)
	scene.POST("/traffic-clean", h.handleCleanTraffic)
	scene.POST("/traffic-clean-all", h.handleCleanAllTraffic)

	api := e.Group("/api/v1")
	api.GET("/events", h.handleFetchEvents)
	if h.feed != nil {
		api.Any("/realtime-traffic", h.realtimeTrafficHandler())
	}

	if h.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}
