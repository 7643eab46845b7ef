// Package session keeps the locally cached authentication state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/Skotchmaster/food_client/internal/storage"
)

const (
	TokenKey   = "authToken"
	UserKey    = "currentUser"
	SessionKey = "userSession"
	MarkerKey  = "authenticationSuccess"

	DefaultTTL = 10 * time.Hour
)

var (
	ErrNoSession        = errors.New("no session")
	ErrSessionCorrupted = errors.New("session corrupted")
	ErrSessionExpired   = errors.New("session expired")
	ErrValidation       = errors.New("validation error")
)

type identitySnapshot struct {
	Username        string      `json:"username"`
	Role            models.Role `json:"role"`
	LoginTime       time.Time   `json:"loginTime"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsNewUser       bool        `json:"isNewUser"`
}

type sessionRecord struct {
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	LoginTime time.Time   `json:"loginTime"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type Welcome struct {
	Username  string `json:"username"`
	IsNewUser bool   `json:"isNewUser"`
}

type Manager struct {
	durable   storage.Store
	transient storage.Store
	now       func() time.Time

	mu        sync.Mutex
	current   *models.Session
	onExpired func(ctx context.Context, s models.Session)
}

func NewManager(durable, transient storage.Store) *Manager {
	return &Manager{
		durable:   durable,
		transient: transient,
		now:       time.Now,
	}
}

// Restore rebuilds the session from durable storage. Missing records yield
// ErrNoSession and leave storage alone; corrupt, inconsistent or expired
// records are removed before the error is returned.
func (m *Manager) Restore(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := logging.FromContext(ctx).With("component", "session")
	m.current = nil

	token, err := m.durable.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read %s: %w", TokenKey, err)
	}
	snap, snapErr := storage.Decode[identitySnapshot](ctx, m.durable, UserKey)
	rec, recErr := storage.Decode[sessionRecord](ctx, m.durable, SessionKey)

	for _, err := range []error{snapErr, recErr} {
		if err != nil && !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrCorrupt) {
			return nil, err
		}
	}
	if errors.Is(snapErr, storage.ErrNotFound) || errors.Is(recErr, storage.ErrNotFound) {
		return nil, ErrNoSession
	}

	if snapErr != nil || recErr != nil || strings.TrimSpace(token) == "" || rec.ExpiresAt.IsZero() {
		l.Warn("session_corrupted", "error", errors.Join(snapErr, recErr))
		return nil, m.clearLocked(ctx, ErrSessionCorrupted)
	}

	if m.now().After(rec.ExpiresAt) {
		l.Info("session_expired", "username", rec.Username, "expires_at", rec.ExpiresAt)
		return nil, m.clearLocked(ctx, ErrSessionExpired)
	}

	if snap.Username != rec.Username || snap.Role != rec.Role {
		l.Warn("session_corrupted", "reason", "identity mismatch")
		return nil, m.clearLocked(ctx, ErrSessionCorrupted)
	}

	m.current = &models.Session{
		IdentityToken: token,
		Username:      rec.Username,
		Role:          rec.Role,
		IssuedAt:      rec.LoginTime,
		ExpiresAt:     rec.ExpiresAt,
		IsNewUser:     snap.IsNewUser,
	}
	return m.snapshot(), nil
}

// Establish is the only way a session comes into existence.
func (m *Manager) Establish(ctx context.Context, token, username string, role models.Role, ttl time.Duration, newUser bool) (*models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrValidation)
	}
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username is empty", ErrValidation)
	}
	if role == "" {
		role = models.RoleCustomer
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	expiresAt := now.Add(ttl)
	if exp, ok := tokenExpiry(token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}

	user, err := storage.Marshal(identitySnapshot{
		Username:        username,
		Role:            role,
		LoginTime:       now,
		IsAuthenticated: true,
		IsNewUser:       newUser,
	})
	if err != nil {
		return nil, err
	}
	rec, err := storage.Marshal(sessionRecord{
		Username:  username,
		Role:      role,
		LoginTime: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	if err := m.durable.Apply(ctx,
		storage.Put(TokenKey, token),
		storage.Put(UserKey, user),
		storage.Put(SessionKey, rec),
	); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := m.transient.Set(ctx, MarkerKey, "true"); err != nil {
		logging.FromContext(ctx).Warn("auth_marker_error", "error", err)
	}

	m.current = &models.Session{
		IdentityToken: token,
		Username:      username,
		Role:          role,
		IssuedAt:      now,
		ExpiresAt:     expiresAt,
		IsNewUser:     newUser,
	}
	return m.snapshot(), nil
}

// Clear is safe to call without a session.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.clearLocked(ctx, nil)
}

func (m *Manager) clearLocked(ctx context.Context, cause error) error {
	m.current = nil
	if err := m.durable.Remove(ctx, TokenKey, UserKey, SessionKey); err != nil {
		return errors.Join(cause, fmt.Errorf("clear session: %w", err))
	}
	if err := m.transient.Remove(ctx, MarkerKey); err != nil {
		return errors.Join(cause, fmt.Errorf("clear auth marker: %w", err))
	}
	return cause
}

// OnExpired registers fn to run after a running session is found expired and
// cleared. fn runs without the manager lock held.
func (m *Manager) OnExpired(fn func(ctx context.Context, s models.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onExpired = fn
}

// Current returns nil once the session is past its expiry; the expired
// session is cleared on the way.
func (m *Manager) Current() *models.Session {
	m.mu.Lock()
	expired, hook := m.expireLocked()
	s := m.snapshot()
	m.mu.Unlock()

	notify(expired, hook)
	return s
}

func (m *Manager) snapshot() *models.Session {
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

func (m *Manager) Token() string {
	m.mu.Lock()
	expired, hook := m.expireLocked()
	token := ""
	if m.current != nil {
		token = m.current.IdentityToken
	}
	m.mu.Unlock()

	notify(expired, hook)
	return token
}

func (m *Manager) expireLocked() (*models.Session, func(context.Context, models.Session)) {
	if m.current == nil || !m.current.Expired(m.now()) {
		return nil, nil
	}

	s := *m.current
	ctx := context.Background()
	l := logging.FromContext(ctx).With("component", "session")
	l.Info("session_expired", "username", s.Username, "expires_at", s.ExpiresAt)
	if err := m.clearLocked(ctx, nil); err != nil {
		l.Error("session_clear_error", "username", s.Username, "error", err)
	}
	return &s, m.onExpired
}

func notify(expired *models.Session, hook func(context.Context, models.Session)) {
	if expired == nil || hook == nil {
		return
	}
	hook(context.Background(), *expired)
}

// ConsumeWelcome reads and removes the post-login marker. A new user is shown
// the greeting once; the flag is then dropped from the stored snapshot.
func (m *Manager) ConsumeWelcome(ctx context.Context) (Welcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := logging.FromContext(ctx).With("component", "session")

	if _, err := m.transient.Get(ctx, MarkerKey); err != nil {
		return Welcome{}, false
	}
	if err := m.transient.Remove(ctx, MarkerKey); err != nil {
		l.Warn("auth_marker_error", "error", err)
	}

	snap, ok, err := storage.Lookup[identitySnapshot](ctx, m.durable, UserKey)
	if err != nil || !ok {
		return Welcome{}, false
	}

	w := Welcome{Username: snap.Username, IsNewUser: snap.IsNewUser}
	if snap.IsNewUser {
		snap.IsNewUser = false
		if err := storage.Encode(ctx, m.durable, UserKey, snap); err != nil {
			l.Warn("welcome_update_error", "error", err)
		}
		if m.current != nil {
			m.current.IsNewUser = false
		}
	}
	return w, true
}
