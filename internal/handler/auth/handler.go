// Package auth exposes the health, public-key, login, and logout endpoints.
package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"igdm/internal/crypto"
	"igdm/internal/errs"
	"igdm/internal/model/api"
	"igdm/internal/session"
	"igdm/pkg/utils"
)

// Handler owns the authentication endpoints.
type Handler struct {
	keys           *crypto.KeyPairStore
	sessions       *session.Manager
	allowPlaintext bool
	log            *zap.Logger
}

// New creates the auth handler. allowPlaintext gates the plaintext password
// fallback; it is off in any networked deployment.
func New(keys *crypto.KeyPairStore, sessions *session.Manager, allowPlaintext bool, log *zap.Logger) *Handler {
	return &Handler{keys: keys, sessions: sessions, allowPlaintext: allowPlaintext, log: log}
}

// RegisterRoutes mounts the auth and health routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/auth/public-key", h.handlePublicKey)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, sess := h.sessions.Status()
	resp := api.HealthResponse{
		Status:        "ok",
		Authenticated: state == session.StateAuthenticated,
	}
	if resp.Authenticated {
		resp.Username = sess.Username
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pemText, err := h.keys.PublicPEM()
	if err != nil {
		h.log.Error("public key unavailable", zap.Error(err))
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, api.PublicKeyResponse{PublicKey: pemText})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondErrorKind(w, errs.KindValidation, "invalid request body")
		return
	}
	if payload.Username == "" {
		utils.RespondErrorKind(w, errs.KindValidation, "username is required")
		return
	}

	password, err := h.credential(payload)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	sess, err := h.sessions.Login(r.Context(), payload.Username, password)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, api.LoginResponse{
		AccountID:   sess.AccountPK,
		Handle:      sess.Username,
		DisplayName: sess.FullName,
	})
}

// credential extracts the plaintext password from the request: decrypting
// the transported ciphertext on the primary path, or accepting the
// explicitly gated plaintext fallback.
func (h *Handler) credential(payload api.LoginRequest) (string, error) {
	if payload.EncryptedPassword != "" {
		priv, err := h.keys.Private()
		if err != nil {
			return "", err
		}
		return crypto.DecryptCredential(payload.EncryptedPassword, priv)
	}
	if payload.Password != "" {
		if !h.allowPlaintext {
			return "", errs.New(errs.KindValidation, "plaintext passwords are disabled; use encrypted_password")
		}
		h.log.Warn("plaintext password login used")
		return payload.Password, nil
	}
	return "", errs.New(errs.KindValidation, "either encrypted_password or password is required")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
