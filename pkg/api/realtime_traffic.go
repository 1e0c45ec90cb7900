package api

import (
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) realtimeTrafficHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}
		defer conn.Close()

		ch := h.feed.subscribe()
		defer h.feed.unsubscribe(ch)

		// The client only talks to close the connection.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return nil
			case data := <-ch:
				if err := wsutil.WriteServerMessage(conn, ws.OpText, data); err != nil {
					log.Error("api: failed to send realtime traffic: ", err)
					return nil
				}
			}
		}
	}
}
