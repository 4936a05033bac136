package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"zapboard/internal/events"
	"zapboard/internal/stats"
	"zapboard/internal/store"
)

// ChannelStatus is the readiness slice of the bridge client.
type ChannelStatus interface {
	Ready(ctx context.Context) (bool, error)
}

type Handler struct {
	store   *store.ScheduledStore
	stats   *stats.Store
	channel ChannelStatus
	hub     *events.Hub
}

func NewHandler(s *store.ScheduledStore, st *stats.Store, ch ChannelStatus, hub *events.Hub) *Handler {
	return &Handler{store: s, stats: st, channel: ch, hub: hub}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	messages := h.store.List()
	pending := 0
	for _, m := range messages {
		if !m.Terminal() {
			pending++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messages,
		"total":    len(messages),
		"pending":  pending,
	})
}

type scheduleRequest struct {
	Recipient     string `json:"recipient"`
	Message       string `json:"message"`
	ScheduledTime string `json:"scheduledTime"`
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Recipient) == "" || strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.ScheduledTime) == "" {
		writeError(w, http.StatusBadRequest, "recipient, message and scheduledTime are required")
		return
	}

	at, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("scheduledTime must be RFC 3339: %v", err))
		return
	}

	// Futurity is enforced here at the boundary, not inside the store.
	if !at.After(time.Now()) {
		writeError(w, http.StatusBadRequest, "scheduledTime must be in the future")
		return
	}

	msg, err := h.store.Add(req.Recipient, req.Message, at)
	if err != nil {
		// The record is live in memory; the next persisted mutation
		// retries the write.
		slog.Error("failed to persist scheduled messages", "err", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": msg})
}

func (h *Handler) DeleteScheduled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.store.Remove(id)
	if err != nil {
		slog.Error("failed to persist scheduled messages", "err", err)
	}
	if !removed {
		writeError(w, http.StatusNotFound, "scheduled message not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.View())
}

func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	if err := h.stats.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ready, err := h.channel.Ready(r.Context())
	if err != nil {
		ready = false
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": ready})
}

// Events streams core events (send results, readiness flips) as
// server-sent events, the push channel the dashboard subscribes to.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subID := "sse-" + uuid.NewString()
	ch := h.hub.Subscribe(subID)
	defer h.hub.Unsubscribe(subID)

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			raw, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, raw)
			flusher.Flush()
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
