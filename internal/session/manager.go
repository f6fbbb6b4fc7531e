package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"igdm/internal/errs"
	"igdm/internal/model/dm"
)

// State is the manager's authentication state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// Authenticator is the slice of the upstream gateway the manager needs:
// a fresh login plus import/export of the gateway's opaque auth state.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (dm.User, error)
	ExportState() (json.RawMessage, error)
	RestoreState(state json.RawMessage) error
	ClearState()
}

// Manager serializes login/logout/invalidation behind one mutex and owns
// the single active session. Reads never touch the network.
type Manager struct {
	store *Store
	auth  Authenticator
	log   *zap.Logger

	mu    sync.Mutex
	state State
	sess  Session
}

// NewManager starts Unauthenticated; call Restore to pick up a persisted
// session.
func NewManager(store *Store, auth Authenticator, log *zap.Logger) *Manager {
	return &Manager{store: store, auth: auth, log: log, state: StateUnauthenticated}
}

// Restore loads a persisted session, if any, and resumes Authenticated
// without contacting upstream. Validity is checked lazily by the first
// operation upstream rejects.
func (m *Manager) Restore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.store.Load()
	if !ok {
		return false
	}
	if err := m.auth.RestoreState(sess.UpstreamState); err != nil {
		m.log.Warn("persisted session unusable, discarding", zap.Error(err))
		_ = m.store.Clear()
		return false
	}
	m.sess = sess
	m.state = StateAuthenticated
	m.log.Info("session restored", zap.String("username", sess.Username))
	return true
}

// Login authenticates against upstream and persists the resulting session.
// Allowed only from Unauthenticated.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	m.mu.Lock()
	switch m.state {
	case StateAuthenticating:
		m.mu.Unlock()
		return Session{}, errs.New(errs.KindValidation, "login already in progress")
	case StateAuthenticated:
		m.mu.Unlock()
		return Session{}, errs.New(errs.KindValidation, "already logged in; logout first")
	}
	m.state = StateAuthenticating
	m.mu.Unlock()

	user, err := m.auth.Login(ctx, username, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateUnauthenticated
		return Session{}, err
	}

	upstreamState, err := m.auth.ExportState()
	if err != nil {
		m.state = StateUnauthenticated
		m.auth.ClearState()
		return Session{}, errs.Wrap(errs.KindFatal, "could not capture upstream session", err)
	}

	sess := Session{
		AccountPK:     user.PK,
		Username:      user.Username,
		FullName:      user.FullName,
		UpstreamState: upstreamState,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.store.Save(sess); err != nil {
		// Login stays valid for this process; it just won't survive a restart.
		m.log.Warn("failed to persist session", zap.Error(err))
	}
	m.sess = sess
	m.state = StateAuthenticated
	m.log.Info("logged in", zap.String("username", user.Username))
	return sess, nil
}

// Logout clears in-memory and persisted session state. Idempotent: calling
// it while Unauthenticated is a no-op success.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUnauthenticated {
		return nil
	}
	if err := m.store.Clear(); err != nil {
		return errs.Wrap(errs.KindFatal, "could not remove persisted session", err)
	}
	m.auth.ClearState()
	m.sess = Session{}
	m.state = StateUnauthenticated
	m.log.Info("logged out")
	return nil
}

// Invalidate downgrades to Unauthenticated after upstream rejected the
// session. Best effort; safe to call from any state.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated {
		return
	}
	if err := m.store.Clear(); err != nil {
		m.log.Warn("failed to remove invalidated session", zap.Error(err))
	}
	m.auth.ClearState()
	m.sess = Session{}
	m.state = StateUnauthenticated
	m.log.Info("upstream invalidated session")
}

// Status returns the current state and, when authenticated, the session.
// Never requires network access.
func (m *Manager) Status() (State, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.sess
}

// Current returns the active session or an AuthRequired error. Used to
// gate every DM operation.
func (m *Manager) Current() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return Session{}, errs.New(errs.KindAuthRequired, "not logged in")
	}
	return m.sess, nil
}
