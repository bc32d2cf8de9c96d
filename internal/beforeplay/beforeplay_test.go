package beforeplay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangman/internal/auth"
	"hangman/internal/match"
	"hangman/internal/protocol"
	"hangman/internal/room"
)

func newTestService(t *testing.T) (*Service, *auth.Service, *room.Service) {
	t.Helper()
	dir := t.TempDir()

	authStore := auth.NewFileStore(filepath.Join(dir, "users.txt"))
	authSvc, err := auth.New(authStore, auth.NewBcryptHasher())
	require.NoError(t, err)

	roomSvc := room.New()
	matchSvc, err := match.New(filepath.Join(dir, "words"), filepath.Join(dir, "history"), true, authSvc)
	require.NoError(t, err)

	return New(authSvc, roomSvc, matchSvc), authSvc, roomSvc
}

func login(t *testing.T, authSvc *auth.Service, username string, fd int) string {
	t.Helper()
	_, _ = authSvc.Register(username, "pw")
	_, _, sess := authSvc.Login(username, "pw", fd)
	require.NotNil(t, sess)
	return sess.Token
}

func TestGetOnlineListExcludesCallerAndBusyUsers(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	login(t, authSvc, "bob", 2)
	login(t, authSvc, "carol", 3)
	roomSvc.Create("carol", 3, "r1")

	list := s.GetOnlineList(aliceToken)
	assert.Equal(t, []string{"bob"}, list.Usernames)
}

func TestSendInviteRejectsOfflineTarget(t *testing.T) {
	s, authSvc, _ := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)

	out := s.SendInvite(aliceToken, "ghost", 1)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.ErrorMessage)
}

func TestSendInviteRejectsBusyTarget(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	login(t, authSvc, "bob", 2)
	roomSvc.Create("bob", 2, "bobs room")

	out := s.SendInvite(aliceToken, "bob", 1)
	assert.False(t, out.Success)
}

func TestRespondInviteAcceptJoinsSenderRoom(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	bobToken := login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")

	out := s.RespondInvite(bobToken, "alice", true)
	assert.True(t, out.Accepted)
	assert.Equal(t, protocol.OK, out.JoinResult.Code)
	assert.Equal(t, roomID, out.JoinResult.RoomID)

	r, ok := roomSvc.Get(roomID)
	require.True(t, ok)
	assert.Len(t, r.Players, 2)
	_ = aliceToken
}

func TestRespondInviteDeclineOnlyNotifiesSender(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	login(t, authSvc, "alice", 1)
	bobToken := login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")

	out := s.RespondInvite(bobToken, "alice", false)
	assert.False(t, out.Accepted)
	assert.True(t, out.HasSender)
	assert.Equal(t, 1, out.SenderFd)

	r, ok := roomSvc.Get(roomID)
	require.True(t, ok)
	assert.Len(t, r.Players, 1)
}

func TestSetReadyNotifiesHost(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	login(t, authSvc, "alice", 1)
	bobToken := login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")
	roomSvc.Join(roomID, "bob", 2)

	out := s.SetReady(bobToken, roomID, true)
	assert.Equal(t, protocol.OK, out.Ack.Code)
	require.True(t, out.HasHost)
	assert.Equal(t, 1, out.HostFd)
	assert.True(t, out.Update.Ready)
}

func TestStartGameRequiresBothReady(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")
	roomSvc.Join(roomID, "bob", 2)

	out := s.StartGame(aliceToken, roomID)
	assert.False(t, out.Success)

	roomSvc.UpdatePlayerState(roomID, "bob", room.StateReady)
	out = s.StartGame(aliceToken, roomID)
	assert.False(t, out.Success)

	roomSvc.UpdatePlayerState(roomID, "alice", room.StateReady)
	out = s.StartGame(aliceToken, roomID)
	require.True(t, out.Success)
	assert.Equal(t, 2, out.OpponentFd)
	assert.Equal(t, "bob", out.HostPacket.OpponentUsername)
	assert.Equal(t, uint8(1), out.HostPacket.CurrentRound)
}

func TestStartGameRejectsNonHost(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	login(t, authSvc, "alice", 1)
	bobToken := login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")
	roomSvc.Join(roomID, "bob", 2)
	roomSvc.UpdatePlayerState(roomID, "bob", room.StateReady)

	out := s.StartGame(bobToken, roomID)
	assert.False(t, out.Success)
}

func TestKickPlayerNotAllowedDuringPlaying(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")
	roomSvc.Join(roomID, "bob", 2)
	roomSvc.UpdateRoomState(roomID, room.RoomPlaying)

	out := s.KickPlayer(aliceToken, roomID, "bob")
	assert.False(t, out.Success)
	assert.Equal(t, protocol.Fail, out.Result.Code)
}

func TestKickPlayerRemovesTarget(t *testing.T) {
	s, authSvc, roomSvc := newTestService(t)
	aliceToken := login(t, authSvc, "alice", 1)
	login(t, authSvc, "bob", 2)
	_, _, roomID := roomSvc.Create("alice", 1, "r1")
	roomSvc.Join(roomID, "bob", 2)

	out := s.KickPlayer(aliceToken, roomID, "bob")
	require.True(t, out.Success)
	assert.Equal(t, 2, out.TargetFd)

	r, ok := roomSvc.Get(roomID)
	require.True(t, ok)
	assert.Len(t, r.Players, 1)
}
