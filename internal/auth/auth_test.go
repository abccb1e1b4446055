package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestLoginCreatesSession(t *testing.T) {
	path := sessionPath(t)
	m := NewManager(path, false, nil)

	session, err := m.Login(Credentials{Username: "player", Password: "hunter2"})
	require.NoError(t, err)

	assert.Equal(t, "player", session.Username)
	assert.NotEmpty(t, session.SessionID)
	assert.NotEmpty(t, session.SteamLoginSecure)
	assert.True(t, m.IsAuthenticated())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoginMissingCredentials(t *testing.T) {
	m := NewManager(sessionPath(t), false, nil)

	_, err := m.Login(Credentials{Username: "", Password: "x"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = m.Login(Credentials{Username: "player", Password: ""})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	assert.False(t, m.IsAuthenticated())
}

func TestLoginGuardCodeBranch(t *testing.T) {
	m := NewManager(sessionPath(t), true, nil)

	_, err := m.Login(Credentials{Username: "player", Password: "hunter2"})
	assert.ErrorIs(t, err, ErrGuardCodeRequired)
	assert.False(t, m.IsAuthenticated())

	session, err := m.Login(Credentials{Username: "player", Password: "hunter2", GuardCode: "ABC12"})
	require.NoError(t, err)
	assert.True(t, session.Valid())
}

func TestLoadRestoresSavedSession(t *testing.T) {
	path := sessionPath(t)

	first := NewManager(path, false, nil)
	saved, err := first.Login(Credentials{Username: "player", Password: "hunter2"})
	require.NoError(t, err)

	second := NewManager(path, false, nil)
	restored, err := second.Load()
	require.NoError(t, err)

	assert.Equal(t, saved.Username, restored.Username)
	assert.Equal(t, saved.SessionID, restored.SessionID)
	assert.True(t, second.IsAuthenticated())
}

func TestLoadWithoutSession(t *testing.T) {
	m := NewManager(sessionPath(t), false, nil)

	_, err := m.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoadCorruptSession(t *testing.T) {
	path := sessionPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	m := NewManager(path, false, nil)
	_, err := m.Load()
	assert.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	path := sessionPath(t)
	m := NewManager(path, false, nil)

	_, err := m.Login(Credentials{Username: "player", Password: "hunter2"})
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Logging out twice is fine.
	assert.NoError(t, m.Logout())
}
