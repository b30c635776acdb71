package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	heartbeatInterval = 30 * time.Second

	// Each write refreshes the deadline; a client that stops reading for
	// this long gets its connection torn down instead of wedging a worker.
	writeDeadline = 60 * time.Second
)

// Handler streams library events over Server-Sent Events.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates the SSE endpoint handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("SSE response not flushable", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect()
	if err != nil {
		h.logger.Error("SSE client registration failed", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	st := &stream{
		w:      w,
		rc:     rc,
		logger: h.logger.With(slog.String("client_id", client.ID)),
	}
	st.serve(r, client)
}

// stream is the per-connection state for one subscriber.
type stream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger
}

func (st *stream) serve(r *http.Request, client *Client) {
	greeting := map[string]string{
		"client_id": client.ID,
		"message":   "SSE connection established",
	}
	if err := st.write("connected", greeting); err != nil {
		st.logger.Warn("greeting not delivered", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event := <-client.EventChan:
			if err := st.write(string(event.Type), event); err != nil {
				st.logger.Info("client disconnected during send")
				return
			}
		case <-heartbeat.C:
			ev := NewHeartbeatEvent()
			if err := st.write(string(ev.Type), ev); err != nil {
				st.logger.Info("client disconnected during heartbeat")
				return
			}
		case <-client.Done:
			st.logger.Info("client closed by manager")
			return
		case <-r.Context().Done():
			st.logger.Info("client context canceled")
			return
		}
	}
}

// write emits one event in SSE wire format and flushes it out.
func (st *stream) write(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(st.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	if err := st.rc.Flush(); err != nil {
		return err
	}

	// Not every ResponseWriter supports deadlines; skipping is fine.
	if err := st.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		st.logger.Debug("write deadline unsupported", slog.String("error", err.Error()))
	}
	return nil
}
