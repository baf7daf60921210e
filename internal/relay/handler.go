package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEHandler returns an http.HandlerFunc that streams update events as SSE.
// Clients may filter on a single window via the ?window= query parameter.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		windowFilter := r.URL.Query().Get("window")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		for {
			select {
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
				fmt.Fprintf(w, "event: messages\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
