package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stockpiled/stockpile/internal/inventory"
	"github.com/stockpiled/stockpile/internal/webserver"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveMessage is the only client-to-server message: a sort order switch.
type liveMessage struct {
	Sort string `json:"sort"`
}

// registerLiveRoutes registers the live projection socket
func registerLiveRoutes() {
	webserver.ApiGET("/products/live", liveProducts)
}

// liveProducts streams full sorted snapshots of the owner's products over
// a websocket. Every store change replaces the previous list; a client
// {"sort":"asc"} message re-sorts without a store round trip.
func liveProducts(c echo.Context) error {
	ownerID := currentUserID(c)
	if ownerID == 0 {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub, err := projector.Subscribe(ownerID, inventory.ParseSortOrder(c.QueryParam("sort")))
	if err != nil {
		zap.L().Error("live subscribe failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil
	}
	defer projector.Unsubscribe(sub)

	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var msg liveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Sort != "" {
				sub.SetOrder(inventory.ParseSortOrder(msg.Sort))
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case products := <-sub.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(products); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-readDone:
			return nil
		}
	}
}
