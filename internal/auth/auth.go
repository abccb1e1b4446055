// Package auth implements the stand-in login flow. It mimics the shape of the
// Steam community login handshake (key request, password obfuscation, guard
// code branch) without real cryptography or a live endpoint, and persists the
// resulting mock session as a JSON file. It provides no security guarantees.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrGuardCodeRequired is returned when the account needs a guard code
	// and none was supplied. Callers retry with Credentials.GuardCode set.
	ErrGuardCodeRequired = errors.New("guard code required")

	// ErrNoSession is returned by Load when no saved session exists.
	ErrNoSession = errors.New("no saved session")
)

// Credentials is the login input.
type Credentials struct {
	Username  string
	Password  string
	GuardCode string
}

// Session is the mock login result, shaped like the cookie set a real login
// would yield.
type Session struct {
	Username         string    `json:"username"`
	SessionID        string    `json:"sessionid"`
	SteamLoginSecure string    `json:"steam_login_secure"`
	CreatedAt        time.Time `json:"created_at"`
}

// Valid reports whether the session carries a usable token.
func (s *Session) Valid() bool {
	return s != nil && s.Username != "" && s.SteamLoginSecure != ""
}

// Manager runs the stub login flow and persists sessions. Safe for concurrent
// use.
type Manager struct {
	path string
	log  *slog.Logger

	// requireGuard makes Login demand a guard code, exercising the branch a
	// real guarded account would hit.
	requireGuard bool

	mu      sync.Mutex
	session *Session
}

// NewManager builds a session manager persisting to path. When requireGuard
// is set, Login fails with ErrGuardCodeRequired until a guard code is given.
func NewManager(path string, requireGuard bool, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{path: path, requireGuard: requireGuard, log: log}
}

// Login validates the credentials, runs the mock handshake, and saves the
// resulting session. The obfuscated password stands in for the RSA-encrypted
// blob a real handshake would send; it is computed and discarded.
func (m *Manager) Login(creds Credentials) (*Session, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	if m.requireGuard && strings.TrimSpace(creds.GuardCode) == "" {
		return nil, ErrGuardCodeRequired
	}

	_ = base64.StdEncoding.EncodeToString([]byte(creds.Password))

	session := &Session{
		Username:         username,
		SessionID:        uuid.NewString(),
		SteamLoginSecure: mockToken(username),
		CreatedAt:        time.Now(),
	}

	if err := m.save(session); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.log.Info("logged in", "username", username)
	return session, nil
}

// Load restores a previously saved session from disk.
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	if !session.Valid() {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	m.session = &session
	m.mu.Unlock()
	return &session, nil
}

// Current returns the in-memory session, or nil when not logged in.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// IsAuthenticated reports whether a valid session is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Current().Valid()
}

// Logout discards the in-memory session and removes the saved file.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (m *Manager) save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func mockToken(username string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(username + "||" + uuid.NewString()))
}
