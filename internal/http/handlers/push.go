package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rendermux/rendermux/internal/push"
	"github.com/rendermux/rendermux/internal/renderer"
)

// PushHandler serves the push transports: the polling endpoint and the two
// live channel attachments (SSE and websocket). These are raw chi handlers
// because their wire shapes (streaming frames, the "{}" empty marker) do not
// fit typed request/response operations.
type PushHandler struct {
	manager           *renderer.Manager
	heartbeatInterval time.Duration
	sendTimeout       time.Duration
	upgrader          websocket.Upgrader
	logger            *slog.Logger
}

// NewPushHandler creates a push transport handler. sendTimeout bounds each
// live-channel frame write, 0 disables the bound.
func NewPushHandler(manager *renderer.Manager, sendTimeout time.Duration, logger *slog.Logger) *PushHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushHandler{
		manager:           manager,
		heartbeatInterval: 30 * time.Second,
		sendTimeout:       sendTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the push transport routes.
func (h *PushHandler) RegisterRoutes(r chi.Router) {
	r.Get("/renderers/{id}/push", h.handlePoll)
	r.Get("/renderers/{id}/events", h.handleSSE)
	r.Get("/renderers/{id}/ws", h.handleWS)
}

// handlePoll drains the renderer's queued messages. The response is a JSON
// array of string arrays, or "{}" when nothing is queued.
func (h *PushHandler) handlePoll(w http.ResponseWriter, r *http.Request) {
	rend, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "renderer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	messages := rend.Channel.PullAndClear()
	if messages == nil {
		fmt.Fprint(w, "{}")
		return
	}

	if err := json.NewEncoder(w).Encode(messages); err != nil {
		h.logger.Debug("failed to write poll response", slog.String("error", err.Error()))
	}
}

// handleSSE attaches a server-sent-events stream as the renderer's live
// channel and holds the connection until the client leaves or a newer channel
// replaces it.
func (h *PushHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	rend, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "renderer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)

	// Streaming connections outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", slog.String("error", err.Error()))
	}

	// Initial comment establishes the connection and triggers onopen in the
	// browser.
	fmt.Fprintf(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Debug("failed to flush initial SSE connection", slog.String("error", err.Error()))
		return
	}

	// Once attached, all writes to the response go through the channel so its
	// mutex serializes them against concurrent pushes.
	live := push.NewSSEChannel(w, h.sendTimeout)
	rend.Channel.Attach(live)
	defer rend.Channel.Detach(live)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			live.Close()
			return
		case <-live.Wait():
			// Replaced by a newer channel or closed by the renderer.
			return
		case <-heartbeat.C:
			if err := live.Comment(fmt.Sprintf("heartbeat %d", time.Now().Unix())); err != nil {
				h.logger.Debug("heartbeat failed, client likely disconnected", slog.String("error", err.Error()))
				live.Close()
				return
			}
		}
	}
}

// handleWS attaches a websocket as the renderer's live channel. Inbound text
// frames carrying a JSON object are treated as player state reports.
func (h *PushHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	rend, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "renderer not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	live := push.NewWSChannel(conn, h.sendTimeout)
	rend.Channel.Attach(live)
	defer rend.Channel.Detach(live)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			live.MarkClosed()
			return
		}

		var report map[string]string
		if err := json.Unmarshal(data, &report); err != nil {
			h.logger.Debug("ignoring malformed websocket frame", slog.String("error", err.Error()))
			continue
		}
		rend.State.IngestRemoteState(report)
	}
}
