package dm

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"igdm/internal/model/api"
	dmmodel "igdm/internal/model/dm"
	"igdm/pkg/utils"
)

// watchPollInterval paces the upstream reads behind a live watch. The
// gateway's own spacing still applies on top.
const watchPollInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RegisterWatchRoutes mounts the live thread watch socket.
func (h *Handler) RegisterWatchRoutes(r chi.Router) {
	r.Get("/ws/thread/{id}", h.handleWatch)
}

// handleWatch streams newly arriving messages for one thread over a
// websocket. It is a poll loop on the server side, not an upstream push:
// each tick re-reads the thread head and forwards anything unseen.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current()
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	threadID, err := h.engine.ResolveThread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends application frames; the read pump only
	// notices the socket closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(conn, api.WSEvent{
		Type:      "status",
		ThreadID:  threadID,
		Status:    "watching",
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return
	}

	lastSeen := ""
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		thread, err := h.engine.Messages(ctx, sess.AccountPK, threadID, 20)
		if err != nil {
			h.log.Warn("live watch poll failed", zap.String("thread_id", threadID), zap.Error(err))
			if writeEvent(conn, api.WSEvent{
				Type:      "status",
				ThreadID:  threadID,
				Status:    "poll_failed",
				Timestamp: time.Now().UTC(),
			}) != nil {
				return
			}
			continue
		}

		fresh := newSince(thread.Messages, lastSeen)
		if len(thread.Messages) > 0 {
			lastSeen = thread.Messages[0].ID
		}
		// Oldest of the fresh batch first, so the client appends in order.
		for i := len(fresh) - 1; i >= 0; i-- {
			msg := fresh[i]
			if writeEvent(conn, api.WSEvent{
				Type:      "message",
				ThreadID:  threadID,
				Message:   &msg,
				Timestamp: time.Now().UTC(),
			}) != nil {
				return
			}
		}
	}
}

// newSince returns the newest-first prefix of messages that arrived after
// lastSeen. On the first poll (lastSeen empty) nothing is new; the watch
// reports arrivals, not history.
func newSince(messages []dmmodel.Message, lastSeen string) []dmmodel.Message {
	if lastSeen == "" {
		return nil
	}
	for i, msg := range messages {
		if msg.ID == lastSeen {
			return messages[:i]
		}
	}
	return messages
}

func writeEvent(conn *websocket.Conn, event api.WSEvent) error {
	return conn.WriteJSON(event)
}
