package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Comment streams are public reads, and the join/leave protocol carries no
// credentials, so cross-origin browser clients are accepted. Mutations stay
// behind the authenticated HTTP API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades the request to a websocket connection and runs its read
// and write pumps until the client goes away.
func Handler(hub *Hub, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(conn, logger)
		go client.writePump()
		go client.readPump(hub)
	})
}
