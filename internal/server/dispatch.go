package server

import (
	"log"

	"hangman/internal/dispatch"
	"hangman/internal/protocol"
	"hangman/internal/room"
)

// handle runs on a worker goroutine (see dispatch.Pool): it decodes the
// already-framed payload, calls the one service method the packet's type
// routes to, and returns every reply and broadcast the call produced. It
// never touches a socket directly.
func (s *Server) handle(fd int, frame protocol.Frame) dispatch.Result {
	if frame.Version != protocol.Version {
		log.Printf("[dispatch] dropping fd %d packet 0x%04x: unsupported version %d", fd, frame.Type, frame.Version)
		return dispatch.Result{}
	}

	switch frame.Type {
	case protocol.CRegister:
		return s.handleRegister(fd, frame.Payload)
	case protocol.CLogin:
		return s.handleLogin(fd, frame.Payload)
	case protocol.CLogout:
		return s.handleLogout(fd, frame.Payload)

	case protocol.CCreateRoom:
		return s.handleCreateRoom(fd, frame.Payload)
	case protocol.CLeaveRoom:
		return s.handleLeaveRoom(fd, frame.Payload)

	case protocol.CRequestOnlineList:
		return s.handleOnlineList(fd, frame.Payload)
	case protocol.CSendInvite:
		return s.handleSendInvite(fd, frame.Payload)
	case protocol.CRespondInvite:
		return s.handleRespondInvite(fd, frame.Payload)
	case protocol.CSetReady:
		return s.handleSetReady(fd, frame.Payload)
	case protocol.CStartGame:
		return s.handleStartGame(fd, frame.Payload)
	case protocol.CKickPlayer:
		return s.handleKickPlayer(fd, frame.Payload)

	case protocol.CGuessChar:
		return s.handleGuessChar(fd, frame.Payload)
	case protocol.CGuessWord:
		return s.handleGuessWord(fd, frame.Payload)
	case protocol.CRequestDraw:
		return s.handleRequestDraw(fd, frame.Payload)
	case protocol.CEndGame:
		return s.handleEndGame(fd, frame.Payload)
	case protocol.CRequestSummary:
		return s.handleRequestSummary(fd, frame.Payload)

	case protocol.CRequestHistory:
		return s.handleRequestHistory(fd, frame.Payload)
	case protocol.CRequestLeaderboard:
		return s.handleRequestLeaderboard(fd, frame.Payload)

	default:
		log.Printf("[dispatch] unknown packet type 0x%04x from fd %d", frame.Type, fd)
		return dispatch.Result{}
	}
}

func reply(fd int, t protocol.Type, payload interface{ Marshal() []byte }) dispatch.Result {
	return dispatch.Result{Outbound: []dispatch.Outbound{{Fd: fd, Data: protocol.Encode(t, payload.Marshal())}}}
}

func parseError(fd int, forType protocol.Type) dispatch.Result {
	return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: forType, Message: "parse error"})
}

// --- AuthService ---------------------------------------------------------

func (s *Server) handleRegister(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRegister(payload)
	if err != nil {
		return parseError(fd, protocol.CRegister)
	}
	code, msg := s.auth.Register(req.Username, req.Password)
	return reply(fd, protocol.SRegisterResult, protocol.SRegisterResultPayload{Code: code, Message: msg})
}

func (s *Server) handleLogin(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCLogin(payload)
	if err != nil {
		return parseError(fd, protocol.CLogin)
	}
	code, msg, sess := s.auth.Login(req.Username, req.Password, fd)
	resp := protocol.SLoginResultPayload{Code: code, Message: msg}
	if sess != nil {
		resp.SessionToken = sess.Token
		resp.NumOfWins = sess.Wins
		resp.TotalPoints = sess.TotalPoints
	}
	return reply(fd, protocol.SLoginResult, resp)
}

func (s *Server) handleLogout(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCLogout(payload)
	if err != nil {
		return parseError(fd, protocol.CLogout)
	}
	code := s.auth.Logout(req.SessionToken)
	msg := "logged out"
	if code != protocol.OK {
		msg = "invalid session"
	}
	return reply(fd, protocol.SLogoutAck, protocol.SLogoutAckPayload{Code: code, Message: msg})
}

// --- RoomService -----------------------------------------------------------

func (s *Server) handleCreateRoom(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCCreateRoom(payload)
	if err != nil {
		return parseError(fd, protocol.CCreateRoom)
	}
	username, ok := s.auth.ValidateSession(req.Token)
	if !ok {
		return reply(fd, protocol.SCreateRoomResult, protocol.SCreateRoomResultPayload{Code: protocol.AuthFail, Message: "invalid session"})
	}
	code, msg, roomID := s.rooms.Create(username, fd, req.RoomName)
	return reply(fd, protocol.SCreateRoomResult, protocol.SCreateRoomResultPayload{Code: code, Message: msg, RoomID: roomID})
}

func (s *Server) handleLeaveRoom(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCLeaveRoom(payload)
	if err != nil {
		return parseError(fd, protocol.CLeaveRoom)
	}
	username, ok := s.auth.ValidateSession(req.Token)
	if !ok {
		return reply(fd, protocol.SLeaveRoomAck, protocol.SLeaveRoomAckPayload{Code: protocol.AuthFail, Message: "invalid session"})
	}

	res := s.rooms.Leave(req.RoomID, username)
	result := reply(fd, protocol.SLeaveRoomAck, protocol.SLeaveRoomAckPayload{Code: res.Code, Message: res.Message})
	for _, n := range res.Notifications {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: n.ToFd, Data: protocol.Encode(protocol.SPlayerLeftNotification, n.Payload.Marshal()),
		})
	}
	return result
}

// --- BeforePlayService -------------------------------------------------

func (s *Server) handleOnlineList(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRequestOnlineList(payload)
	if err != nil {
		return parseError(fd, protocol.CRequestOnlineList)
	}
	list := s.beforePlay.GetOnlineList(req.Token)
	return reply(fd, protocol.SOnlineList, list)
}

func (s *Server) handleSendInvite(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCSendInvite(payload)
	if err != nil {
		return parseError(fd, protocol.CSendInvite)
	}
	out := s.beforePlay.SendInvite(req.Token, req.TargetUsername, req.RoomID)
	if !out.Success {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CSendInvite, Message: out.ErrorMessage})
	}
	return reply(out.TargetFd, protocol.SInviteReceived, out.Invite)
}

func (s *Server) handleRespondInvite(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRespondInvite(payload)
	if err != nil {
		return parseError(fd, protocol.CRespondInvite)
	}
	out := s.beforePlay.RespondInvite(req.Token, req.FromUsername, req.Accept)

	result := dispatch.Result{}
	if req.Accept {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: fd, Data: protocol.Encode(protocol.SCreateRoomResult, out.JoinResult.Marshal()),
		})
	}
	if out.HasSender {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.SenderFd, Data: protocol.Encode(protocol.SInviteResponse, out.Response.Marshal()),
		})
	}
	return result
}

func (s *Server) handleSetReady(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCSetReady(payload)
	if err != nil {
		return parseError(fd, protocol.CSetReady)
	}
	out := s.beforePlay.SetReady(req.Token, req.RoomID, req.Ready)

	result := dispatch.Result{Outbound: []dispatch.Outbound{
		{Fd: fd, Data: protocol.Encode(protocol.SAck, out.Ack.Marshal())},
	}}
	if out.HasHost && out.HostFd != fd {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.HostFd, Data: protocol.Encode(protocol.SPlayerReadyUpdate, out.Update.Marshal()),
		})
	}
	return result
}

func (s *Server) handleStartGame(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCStartGame(payload)
	if err != nil {
		return parseError(fd, protocol.CStartGame)
	}
	out := s.beforePlay.StartGame(req.Token, req.RoomID)
	if !out.Success {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CStartGame, Message: out.ErrorMessage})
	}
	return dispatch.Result{Outbound: []dispatch.Outbound{
		{Fd: fd, Data: protocol.Encode(protocol.SGameStart, out.HostPacket.Marshal())},
		{Fd: out.OpponentFd, Data: protocol.Encode(protocol.SGameStart, out.OpponentPacket.Marshal())},
	}}
}

func (s *Server) handleKickPlayer(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCKickPlayer(payload)
	if err != nil {
		return parseError(fd, protocol.CKickPlayer)
	}
	out := s.beforePlay.KickPlayer(req.Token, req.RoomID, req.TargetUsername)

	result := dispatch.Result{Outbound: []dispatch.Outbound{
		{Fd: fd, Data: protocol.Encode(protocol.SKickResult, out.Result.Marshal())},
	}}
	if out.Success && out.HasTarget {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.TargetFd, Data: protocol.Encode(protocol.SKickResult, out.Result.Marshal()),
		})
	}
	return result
}

// --- MatchService --------------------------------------------------------

func (s *Server) handleGuessChar(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCGuessChar(payload)
	if err != nil {
		return parseError(fd, protocol.CGuessChar)
	}
	out := s.match.GuessChar(req.Token, req.RoomID, req.Ch)
	if out.Code != protocol.OK {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CGuessChar, Message: out.Message})
	}
	result := reply(fd, protocol.SGuessCharResult, out.Self)
	if out.HasOpponent {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.OpponentFd, Data: protocol.Encode(protocol.SGuessCharResult, out.Opponent.Marshal()),
		})
	}
	return result
}

func (s *Server) handleGuessWord(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCGuessWord(payload)
	if err != nil {
		return parseError(fd, protocol.CGuessWord)
	}
	out := s.match.GuessWord(req.Token, req.RoomID, req.Word)
	if out.Code != protocol.OK {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CGuessWord, Message: out.Message})
	}
	result := reply(fd, protocol.SGuessWordResult, out.Self)
	if out.HasOpponent {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.OpponentFd, Data: protocol.Encode(protocol.SGuessWordResult, out.Opponent.Marshal()),
		})
	}
	return result
}

func (s *Server) handleRequestDraw(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRequestDraw(payload)
	if err != nil {
		return parseError(fd, protocol.CRequestDraw)
	}
	notice, targetFd, ok := s.match.RequestDraw(req.Token, req.RoomID, req.MatchID)
	if !ok {
		return dispatch.Result{}
	}
	return reply(targetFd, protocol.SDrawRequest, notice)
}

func (s *Server) handleEndGame(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCEndGame(payload)
	if err != nil {
		return parseError(fd, protocol.CEndGame)
	}
	out := s.match.EndGame(req.Token, req.RoomID, req.MatchID, req.ResultCode)
	if out.Code != protocol.OK {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CEndGame, Message: out.Message})
	}

	// The match is over; hand the room back to the lobby so its members can
	// ready up again or leave.
	if r, found := s.rooms.Get(req.RoomID); found {
		s.rooms.UpdateRoomState(req.RoomID, room.RoomLobby)
		for _, p := range r.Players {
			s.rooms.UpdatePlayerState(req.RoomID, p.Username, room.StatePreparing)
		}
	}

	result := reply(fd, protocol.SGameEnd, out.Payload)
	if out.HasOpponent {
		result.Outbound = append(result.Outbound, dispatch.Outbound{
			Fd: out.OpponentFd, Data: protocol.Encode(protocol.SGameEnd, out.Payload.Marshal()),
		})
	}
	return result
}

func (s *Server) handleRequestSummary(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRequestSummary(payload)
	if err != nil {
		return parseError(fd, protocol.CRequestSummary)
	}
	summary, ok := s.match.RequestSummary(req.Token, req.RoomID)
	if !ok {
		return reply(fd, protocol.SError, protocol.SErrorPayload{ForType: protocol.CRequestSummary, Message: "match not found"})
	}
	return reply(fd, protocol.SGameSummary, summary)
}

// --- SummaryService ------------------------------------------------------

func (s *Server) handleRequestHistory(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRequestHistory(payload)
	if err != nil {
		return parseError(fd, protocol.CRequestHistory)
	}
	return reply(fd, protocol.SHistoryList, s.summary.GetHistory(req.Token, req.Limit))
}

func (s *Server) handleRequestLeaderboard(fd int, payload []byte) dispatch.Result {
	req, err := protocol.UnmarshalCRequestLeaderboard(payload)
	if err != nil {
		return parseError(fd, protocol.CRequestLeaderboard)
	}
	return reply(fd, protocol.SLeaderboard, s.summary.GetLeaderboard(req.Token, req.Limit))
}
