package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/model"
)

func (h *Handler) handleFetchScenes(c echo.Context) error {
	return c.JSON(http.StatusOK, resource.OK(resource.NewSceneList(h.traffic.Scenes())))
}

func (h *Handler) handleFetchTraffic(c echo.Context) error {
	views, err := h.traffic.QueryScene(c.Param("name"))
	if err == model.ErrSceneNotFound {
		return c.JSON(http.StatusNotFound, resource.Fail(http.StatusNotFound, err))
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, resource.Fail(http.StatusInternalServerError, err))
	}

	return c.JSON(http.StatusOK, resource.OK(views))
}

func (h *Handler) handleCleanTraffic(c echo.Context) error {
	r := &resource.TrafficParams{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.Fail(http.StatusBadRequest, err))
	}
	if err := r.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, resource.Fail(http.StatusBadRequest, err))
	}

	err := h.traffic.ResetByAddress(c.Request().Context(), r.IP, r.Port)
	if err == model.ErrCameraNotFound {
		return c.JSON(http.StatusNotFound, resource.Fail(http.StatusNotFound, err))
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, resource.Fail(http.StatusInternalServerError, err))
	}

	return c.JSON(http.StatusOK, resource.OK(nil))
}

func (h *Handler) handleCleanAllTraffic(c echo.Context) error {
	outcomes := h.traffic.ResetAll(c.Request().Context())
	return c.JSON(http.StatusOK, resource.OK(resource.NewCleanOutcomeList(outcomes)))
}
