package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
)

const heartbeatInterval = 30 * time.Second

// StreamHandler pushes run announcements to dashboard clients as
// Server-Sent Events.
type StreamHandler struct {
	bus       providers.RunEventBus
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(bus providers.RunEventBus) *StreamHandler {
	return &StreamHandler{bus: bus, heartbeat: heartbeatInterval}
}

// StreamRuns handles GET /api/runs/stream
func (h *StreamHandler) StreamRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.bus.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe to run events")
		respondWithError(w, http.StatusServiceUnavailable, "run events unavailable")
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("write deadline not adjustable")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, data interface{}) bool {
		if err := writeEvent(w, event, data); err != nil {
			log.Debug().Err(err).Msg("run stream client gone")
			return false
		}
		if err := rc.Flush(); err != nil {
			log.Debug().Err(err).Msg("run stream flush failed")
			return false
		}
		return true
	}

	if !send("connected", map[string]interface{}{"timestamp": time.Now().UTC()}) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !send("heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()}) {
				return
			}
		case event, ok := <-events:
			if !ok {
				send("closed", map[string]string{"reason": "run event bus closed"})
				return
			}
			if !send("run", event) {
				return
			}
		}
	}
}

// GetStats handles GET /api/runs/stream/stats
func (h *StreamHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int{
		"connected_clients": h.bus.SubscriberCount(),
	})
}

func writeEvent(w io.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
