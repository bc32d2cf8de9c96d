// Package beforeplay implements everything that happens in a room's lobby
// before a match starts: the free-player list, invites, ready toggling,
// kicking, and starting the game itself.
package beforeplay

import (
	"hangman/internal/auth"
	"hangman/internal/match"
	"hangman/internal/protocol"
	"hangman/internal/room"
)

// Service composes auth, room, and match to answer lobby requests. It holds
// no state of its own.
type Service struct {
	auth  *auth.Service
	rooms *room.Service
	match *match.Service
}

// New wires a Service over the already-constructed lower-level services.
func New(authSvc *auth.Service, roomSvc *room.Service, matchSvc *match.Service) *Service {
	return &Service{auth: authSvc, rooms: roomSvc, match: matchSvc}
}

// GetOnlineList returns every logged-in user other than the caller who
// isn't currently in a room.
func (s *Service) GetOnlineList(token string) protocol.SOnlineListPayload {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return protocol.SOnlineListPayload{}
	}

	var free []string
	for _, sess := range s.auth.GetAllSessions() {
		if sess.Username == username {
			continue
		}
		if !s.rooms.IsUserInRoom(sess.Username) {
			free = append(free, sess.Username)
		}
	}
	return protocol.SOnlineListPayload{Usernames: free}
}

// InviteOutcome is the pair of replies a sendInvite call produces: an error
// for the sender on failure, or a forwarded invite for the target.
type InviteOutcome struct {
	Success      bool
	ErrorMessage string
	TargetFd     int
	Invite       protocol.SInviteReceivedPayload
}

// SendInvite forwards the caller's invite to targetUsername, provided the
// target is online and not already in a room.
func (s *Service) SendInvite(token, targetUsername string, roomID uint32) InviteOutcome {
	sender, ok := s.auth.ValidateSession(token)
	if !ok {
		return InviteOutcome{ErrorMessage: "invalid session"}
	}

	targetFd, online := s.auth.GetClientFd(targetUsername)
	if !online {
		return InviteOutcome{ErrorMessage: "user not online"}
	}
	if s.rooms.IsUserInRoom(targetUsername) {
		return InviteOutcome{ErrorMessage: targetUsername + " is busy"}
	}
	r, found := s.rooms.Get(roomID)
	if !found {
		return InviteOutcome{ErrorMessage: "room not found"}
	}

	return InviteOutcome{
		Success:  true,
		TargetFd: targetFd,
		Invite:   protocol.SInviteReceivedPayload{FromUsername: sender, RoomID: roomID, RoomName: r.Name},
	}
}

// RespondOutcome is what accepting or declining an invite produces.
type RespondOutcome struct {
	SenderFd   int
	HasSender  bool
	Response   protocol.SInviteResponsePayload
	Accepted   bool
	JoinResult protocol.SCreateRoomResultPayload
}

// RespondInvite handles a target's accept/decline of fromUsername's invite.
// The room joined on accept is whichever room fromUsername currently belongs
// to.
func (s *Service) RespondInvite(token, fromUsername string, accept bool) RespondOutcome {
	target, ok := s.auth.ValidateSession(token)
	if !ok {
		return RespondOutcome{Accepted: accept}
	}

	senderFd, online := s.auth.GetClientFd(fromUsername)
	if !online {
		return RespondOutcome{Accepted: accept}
	}
	out := RespondOutcome{SenderFd: senderFd, HasSender: true, Accepted: accept}

	if !accept {
		out.Response = protocol.SInviteResponsePayload{
			ToUsername: fromUsername,
			Accepted:   false,
			Message:    target + " declined invite",
		}
		return out
	}

	r, found := s.rooms.GetByUsername(fromUsername)
	if !found {
		out.Accepted = false
		out.JoinResult = protocol.SCreateRoomResultPayload{Code: protocol.NotFound, Message: "room not found or sender left"}
		out.Response = protocol.SInviteResponsePayload{ToUsername: fromUsername, Accepted: false, Message: "room invalid"}
		return out
	}
	if len(r.Players) >= 2 {
		out.Accepted = false
		out.JoinResult = protocol.SCreateRoomResultPayload{Code: protocol.Fail, Message: "room is full"}
		out.Response = protocol.SInviteResponsePayload{ToUsername: fromUsername, Accepted: false, Message: "room full"}
		return out
	}

	targetFd, _ := s.auth.GetClientFd(target)
	code, msg := s.rooms.Join(r.ID, target, targetFd)
	out.JoinResult = protocol.SCreateRoomResultPayload{Code: code, Message: msg, RoomID: r.ID}
	if code != protocol.OK {
		out.Accepted = false
		out.Response = protocol.SInviteResponsePayload{ToUsername: fromUsername, Accepted: false, Message: msg}
		return out
	}

	out.Response = protocol.SInviteResponsePayload{
		ToUsername: fromUsername,
		Accepted:   true,
		Message:    target + " accepted invite",
	}
	return out
}

// SetReadyOutcome is the ack for the caller plus, when a host exists to
// notify, the update forwarded to them.
type SetReadyOutcome struct {
	Ack     protocol.SAckPayload
	HasHost bool
	HostFd  int
	Update  protocol.SPlayerReadyUpdatePayload
}

// SetReady toggles username's ready state within roomID.
func (s *Service) SetReady(token string, roomID uint32, ready bool) SetReadyOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return SetReadyOutcome{Ack: protocol.SAckPayload{AckForType: protocol.CSetReady, Code: protocol.AuthFail, Message: "invalid session"}}
	}

	r, found := s.rooms.Get(roomID)
	if !found {
		return SetReadyOutcome{Ack: protocol.SAckPayload{AckForType: protocol.CSetReady, Code: protocol.NotFound, Message: "room not found"}}
	}
	if r.State == room.RoomPlaying {
		return SetReadyOutcome{Ack: protocol.SAckPayload{AckForType: protocol.CSetReady, Code: protocol.Fail, Message: "game already in progress"}}
	}

	newState := room.StatePreparing
	if ready {
		newState = room.StateReady
	}
	s.rooms.UpdatePlayerState(roomID, username, newState)

	out := SetReadyOutcome{
		Ack:    protocol.SAckPayload{AckForType: protocol.CSetReady, Code: protocol.OK, Message: "set ready success"},
		Update: protocol.SPlayerReadyUpdatePayload{Username: username, Ready: ready},
	}
	for _, p := range r.Players {
		if p.Username == r.HostUsername {
			out.HasHost = true
			out.HostFd = p.ConnFd
			break
		}
	}
	return out
}

// StartGameOutcome is the reply pair for starting a match: one GameStart
// packet each for host and opponent, each naming the other player as the
// opponent, or an error for the caller alone.
type StartGameOutcome struct {
	Success        bool
	ErrorMessage   string
	OpponentFd     int
	HostPacket     protocol.SGameStartPayload
	OpponentPacket protocol.SGameStartPayload
}

// StartGame begins the match for roomID. Only the host may call this, and
// both the host and the other player in the room must already be ready.
func (s *Service) StartGame(token string, roomID uint32) StartGameOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return StartGameOutcome{ErrorMessage: "invalid session"}
	}

	r, found := s.rooms.Get(roomID)
	if !found {
		return StartGameOutcome{ErrorMessage: "room not found"}
	}
	if r.HostUsername != username {
		return StartGameOutcome{ErrorMessage: "only host can start game"}
	}

	opponentName := ""
	opponentFd := -1
	for _, p := range r.Players {
		if p.Username == username {
			if p.State != room.StateReady {
				return StartGameOutcome{ErrorMessage: "host not ready"}
			}
			continue
		}
		if p.State != room.StateReady {
			return StartGameOutcome{ErrorMessage: "opponent not ready"}
		}
		opponentName = p.Username
		opponentFd = p.ConnFd
	}
	if opponentName == "" {
		return StartGameOutcome{ErrorMessage: "no opponent or not ready"}
	}

	s.rooms.UpdateRoomState(roomID, room.RoomPlaying)
	s.rooms.UpdatePlayerState(roomID, username, room.StateInGame)
	s.rooms.UpdatePlayerState(roomID, opponentName, room.StateInGame)

	players := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.Username)
	}
	s.match.Start(roomID, players)

	wordLen, round, _ := s.match.WordLength(roomID)

	return StartGameOutcome{
		Success:    true,
		OpponentFd: opponentFd,
		HostPacket: protocol.SGameStartPayload{
			RoomID: roomID, OpponentUsername: opponentName,
			WordLength: uint32(wordLen), CurrentRound: round,
		},
		OpponentPacket: protocol.SGameStartPayload{
			RoomID: roomID, OpponentUsername: username,
			WordLength: uint32(wordLen), CurrentRound: round,
		},
	}
}

// KickOutcome is the shared result both the host and the kicked player
// should see.
type KickOutcome struct {
	Success   bool
	TargetFd  int
	HasTarget bool
	Result    protocol.SKickResultPayload
}

// KickPlayer removes targetUsername from roomID. Only the host may call
// this, and only while the room hasn't started a match.
func (s *Service) KickPlayer(token string, roomID uint32, targetUsername string) KickOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return KickOutcome{Result: protocol.SKickResultPayload{Code: protocol.AuthFail, Message: "invalid session"}}
	}

	r, found := s.rooms.Get(roomID)
	if !found {
		return KickOutcome{Result: protocol.SKickResultPayload{Code: protocol.NotFound, Message: "room not found"}}
	}
	if r.HostUsername != username {
		return KickOutcome{Result: protocol.SKickResultPayload{Code: protocol.Fail, Message: "only host can kick"}}
	}
	if r.State == room.RoomPlaying {
		return KickOutcome{Result: protocol.SKickResultPayload{Code: protocol.Fail, Message: "cannot kick during game"}}
	}

	code, msg, fd := s.rooms.Kick(roomID, targetUsername)
	if code != protocol.OK {
		return KickOutcome{Result: protocol.SKickResultPayload{Code: code, Message: msg}}
	}

	return KickOutcome{
		Success:   true,
		TargetFd:  fd,
		HasTarget: true,
		Result:    protocol.SKickResultPayload{Code: protocol.OK, Message: "kick success"},
	}
}
