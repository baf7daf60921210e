package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSHandler returns an http.HandlerFunc that upgrades the connection to a
// WebSocket and pushes update events as JSON text frames. Same filtering
// semantics as the SSE handler (?window= query parameter).
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowFilter := r.URL.Query().Get("window")

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		// Reader goroutine: the client never sends application data, but we
		// still have to consume control frames and detect the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, err := wsutil.ReadClientText(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if windowFilter != "" && evt.WindowID != windowFilter {
					continue
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				if err := wsutil.WriteServerText(conn, payload); err != nil {
					slog.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
