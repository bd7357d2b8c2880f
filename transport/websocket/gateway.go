package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pointdeck/pointdeck/pubsub"
	"github.com/pointdeck/pointdeck/room"
)

// Gateway upgrades HTTP requests and runs one connection handler per
// accepted socket. The store and hub are shared handles injected at
// construction, never package globals.
type Gateway struct {
	store    *room.Store
	hub      *pubsub.PubSub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway over the given store and hub.
func NewGateway(store *room.Store, hub *pubsub.PubSub, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:  store,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are handled by the API's CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles a WebSocket upgrade request.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	c := newConn(g, ws)
	go c.run()
}
