package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangman/internal/protocol"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "users.txt"))
	svc, err := New(store, NewBcryptHasher())
	require.NoError(t, err)
	return svc
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc := newTestService(t)

	code, _ := svc.Register("alice", "hunter2")
	require.Equal(t, protocol.OK, code)

	code, _, sess := svc.Login("alice", "hunter2", 7)
	require.Equal(t, protocol.OK, code)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, 7, sess.ConnFd)

	username, ok := svc.ValidateSession(sess.Token)
	require.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("bob", "pw")
	code, _ := svc.Register("bob", "pw2")
	assert.Equal(t, protocol.Already, code)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("carol", "correct")
	code, _, sess := svc.Login("carol", "wrong", 1)
	assert.Equal(t, protocol.AuthFail, code)
	assert.Nil(t, sess)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("dave", "pw")
	_, _, sess := svc.Login("dave", "pw", 3)

	code := svc.Logout(sess.Token)
	assert.Equal(t, protocol.OK, code)

	_, ok := svc.ValidateSession(sess.Token)
	assert.False(t, ok)
}

func TestLoginSupersedesExistingSession(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("grace", "pw")

	_, _, first := svc.Login("grace", "pw", 5)
	require.NotNil(t, first)
	_, _, second := svc.Login("grace", "pw", 6)
	require.NotNil(t, second)

	_, ok := svc.ValidateSession(first.Token)
	assert.False(t, ok, "old session must be superseded by the new login")
	username, ok := svc.ValidateSession(second.Token)
	require.True(t, ok)
	assert.Equal(t, "grace", username)
	assert.Len(t, svc.GetAllSessions(), 1)
}

func TestHandleDisconnectRemovesSessionsForFd(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("erin", "pw")
	_, _, sess := svc.Login("erin", "pw", 42)

	gone := svc.HandleDisconnect(42)
	assert.Equal(t, []string{"erin"}, gone)

	_, ok := svc.ValidateSession(sess.Token)
	assert.False(t, ok)
}

func TestUpdateUserStatsPersists(t *testing.T) {
	svc := newTestService(t)
	_, _ = svc.Register("frank", "pw")

	require.NoError(t, svc.UpdateUserStats("frank", true, 30))

	user, ok := svc.GetUser("frank")
	require.True(t, ok)
	assert.Equal(t, uint32(1), user.Wins)
	assert.Equal(t, uint32(30), user.TotalPoints)
}
