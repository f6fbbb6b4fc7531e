// Package dm exposes the inbox, thread, send, and user-lookup endpoints.
package dm

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"igdm/internal/errs"
	"igdm/internal/model/api"
	dmservice "igdm/internal/service/dm"
	"igdm/internal/session"
	"igdm/pkg/utils"
)

// Handler owns the direct-message endpoints.
type Handler struct {
	engine   *dmservice.Service
	sessions *session.Manager
	log      *zap.Logger
}

// New creates the DM handler.
func New(engine *dmservice.Service, sessions *session.Manager, log *zap.Logger) *Handler {
	return &Handler{engine: engine, sessions: sessions, log: log}
}

// RegisterRoutes mounts the DM routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/inbox", h.handleInbox)
	r.Get("/thread/{id}", h.handleThread)
	r.Post("/thread/{id}/send", h.handleSendToThread)
	r.Post("/send/{handle}", h.handleSendToUser)
	r.Get("/user/{handle}", h.handleUser)
}

func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Current(); err != nil {
		utils.RespondError(w, err)
		return
	}

	limit := queryInt(r, "limit", dmservice.DefaultLimit)
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	conversations, err := h.engine.ListInbox(r.Context(), limit, unreadOnly)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.InboxResponse{Conversations: conversations})
}

func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request) {
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

	limit := queryInt(r, "limit", dmservice.DefaultLimit)
	thread, err := h.engine.Messages(r.Context(), sess.AccountPK, threadID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.ThreadResponse{
		ThreadID: thread.ThreadID,
		Title:    thread.Title,
		Messages: thread.Messages,
	})
}

func (h *Handler) handleSendToThread(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current()
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	var payload api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondErrorKind(w, errs.KindValidation, "invalid request body")
		return
	}

	msg, err := h.engine.SendToThread(r.Context(), sess.AccountPK, chi.URLParam(r, "id"), payload.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.SendResponse{Message: msg})
}

func (h *Handler) handleSendToUser(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current()
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	var payload api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondErrorKind(w, errs.KindValidation, "invalid request body")
		return
	}

	msg, err := h.engine.SendToUser(r.Context(), sess.AccountPK, chi.URLParam(r, "handle"), payload.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.SendResponse{Message: msg})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Current(); err != nil {
		utils.RespondError(w, err)
		return
	}

	user, err := h.engine.User(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.UserResponse{User: user})
}

// fail responds with err and downgrades the session when upstream rejected
// it mid-operation (lazy invalidation).
func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errs.IsKind(err, errs.KindAuthRequired) {
		h.sessions.Invalidate()
	}
	utils.RespondError(w, err)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return val
}
