package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/model"
)

func (h *Handler) handleFetchEvents(c echo.Context) error {
	var (
		m   map[int32]model.Event
		err error
	)

	if key := c.QueryParam("camera"); key != "" {
		m, err = h.store.Events().FetchByCameraKey(key)
	} else {
		m, err = h.store.Events().FetchAll()
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, resource.Fail(http.StatusInternalServerError, err))
	}

	return c.JSON(http.StatusOK, resource.OK(resource.NewEventList(m)))
}
