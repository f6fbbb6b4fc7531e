// Package session owns the single authenticated session: its persisted
// form, and the state machine that gates every other operation on it.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"igdm/internal/store"
)

// Session is the durable authentication state. UpstreamState is an opaque
// blob owned by the gateway (cookies, device identity); it never contains
// the plaintext password.
type Session struct {
	AccountPK     string          `json:"account_pk"`
	Username      string          `json:"username"`
	FullName      string          `json:"full_name"`
	UpstreamState json.RawMessage `json:"upstream_state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store persists the session to a single restricted-permission file.
type Store struct {
	path string
}

// NewStore persists sessions at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. ok is false when none exists or the
// file is unreadable; a stale or corrupt session is treated as absent.
func (s *Store) Load() (Session, bool) {
	var sess Session
	if err := store.ReadJSON(s.path, &sess); err != nil {
		return Session{}, false
	}
	if sess.AccountPK == "" || len(sess.UpstreamState) == 0 {
		return Session{}, false
	}
	return sess, true
}

// Save writes the session atomically with 0600 permissions.
func (s *Store) Save(sess Session) error {
	return store.WriteJSON(s.path, sess, 0o600)
}

// Clear removes the persisted session. Missing file is a no-op.
func (s *Store) Clear() error {
	err := store.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
