package summary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangman/internal/auth"
)

func newTestService(t *testing.T) (*Service, *auth.Service, string) {
	t.Helper()
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")
	require.NoError(t, os.MkdirAll(historyDir, 0o755))

	store := auth.NewFileStore(filepath.Join(dir, "users.txt"))
	authSvc, err := auth.New(store, auth.NewBcryptHasher())
	require.NoError(t, err)

	return New(authSvc, historyDir), authSvc, historyDir
}

func TestGetHistoryReturnsMostRecentFirst(t *testing.T) {
	svc, authSvc, historyDir := newTestService(t)
	_, _ = authSvc.Register("alice", "pw")
	_, _, sess := authSvc.Login("alice", "pw", 1)

	path := filepath.Join(historyDir, "alice.txt")
	content := "2026-01-01 10:00:00:bob:win:10:20:30\n2026-02-01 10:00:00:carol:lose:5:0:0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	list := svc.GetHistory(sess.Token, 0)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "carol", list.Entries[0].Opponent)
	assert.Equal(t, uint8(0), list.Entries[0].Result)
	assert.Equal(t, "bob", list.Entries[1].Opponent)
	assert.Equal(t, uint8(1), list.Entries[1].Result)
}

func TestGetHistoryRejectsInvalidSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	list := svc.GetHistory("not-a-real-token", 0)
	assert.Empty(t, list.Entries)
}

func TestGetLeaderboardRanksByWinsThenPoints(t *testing.T) {
	svc, authSvc, _ := newTestService(t)
	_, _ = authSvc.Register("alice", "pw")
	_, _ = authSvc.Register("bob", "pw")
	_, _, sess := authSvc.Login("alice", "pw", 1)

	require.NoError(t, authSvc.UpdateUserStats("alice", true, 30))
	require.NoError(t, authSvc.UpdateUserStats("bob", true, 50))
	require.NoError(t, authSvc.UpdateUserStats("bob", true, 50))

	board := svc.GetLeaderboard(sess.Token, 0)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "bob", board.Entries[0].Username)
	assert.Equal(t, uint32(2), board.Entries[0].Wins)
}
