package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/ntentasd/colmena-telemetry/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// streamHandler sends one server-sent "state" event per state replacement,
// starting with the current state. Slow clients skip intermediate states.
func (app *App) streamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.ReplyJSON(w, http.StatusInternalServerError, utils.Body{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	states := app.State.Watch(r.Context())
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var id int
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case st, ok := <-states:
			if !ok {
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			b, err := json.Marshal(dashboard.NewView(st))
			if err != nil {
				app.logger.Error().Err(err).Msg("failed to encode state")
				continue
			}
			id++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", id, b); err != nil {
				app.logger.Debug().Err(err).Msg("stream client gone")
				return
			}
			flusher.Flush()
		}
	}
}
