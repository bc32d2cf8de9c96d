package protocol

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type CRegisterPayload struct {
	Username string
	Password string
}

func (p CRegisterPayload) Marshal() []byte {
	return NewWriter().Str(p.Username).Str(p.Password).Bytes()
}

func UnmarshalCRegister(b []byte) (CRegisterPayload, error) {
	r := NewReader(b)
	p := CRegisterPayload{Username: r.Str(), Password: r.Str()}
	return p, r.Err()
}

type SRegisterResultPayload struct {
	Code    ResultCode
	Message string
}

func (p SRegisterResultPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).Bytes()
}

type CLoginPayload struct {
	Username string
	Password string
}

func (p CLoginPayload) Marshal() []byte {
	return NewWriter().Str(p.Username).Str(p.Password).Bytes()
}

func UnmarshalCLogin(b []byte) (CLoginPayload, error) {
	r := NewReader(b)
	p := CLoginPayload{Username: r.Str(), Password: r.Str()}
	return p, r.Err()
}

type SLoginResultPayload struct {
	Code         ResultCode
	Message      string
	SessionToken string
	NumOfWins    uint32
	TotalPoints  uint32
}

func (p SLoginResultPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).Str(p.SessionToken).
		U32(p.NumOfWins).U32(p.TotalPoints).Bytes()
}

type CLogoutPayload struct {
	SessionToken string
}

func (p CLogoutPayload) Marshal() []byte { return NewWriter().Str(p.SessionToken).Bytes() }

func UnmarshalCLogout(b []byte) (CLogoutPayload, error) {
	r := NewReader(b)
	p := CLogoutPayload{SessionToken: r.Str()}
	return p, r.Err()
}

type SLogoutAckPayload struct {
	Code    ResultCode
	Message string
}

func (p SLogoutAckPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).Bytes()
}

// ---------------------------------------------------------------------------
// Lobby / Room
// ---------------------------------------------------------------------------

type CCreateRoomPayload struct {
	Token    string
	RoomName string
}

func (p CCreateRoomPayload) Marshal() []byte { return NewWriter().Str(p.Token).Str(p.RoomName).Bytes() }

func UnmarshalCCreateRoom(b []byte) (CCreateRoomPayload, error) {
	r := NewReader(b)
	p := CCreateRoomPayload{Token: r.Str(), RoomName: r.Str()}
	return p, r.Err()
}

type SCreateRoomResultPayload struct {
	Code    ResultCode
	Message string
	RoomID  uint32
}

func (p SCreateRoomResultPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).U32(p.RoomID).Bytes()
}

type CLeaveRoomPayload struct {
	Token  string
	RoomID uint32
}

func (p CLeaveRoomPayload) Marshal() []byte { return NewWriter().Str(p.Token).U32(p.RoomID).Bytes() }

func UnmarshalCLeaveRoom(b []byte) (CLeaveRoomPayload, error) {
	r := NewReader(b)
	p := CLeaveRoomPayload{Token: r.Str(), RoomID: r.U32()}
	return p, r.Err()
}

type SLeaveRoomAckPayload struct {
	Code    ResultCode
	Message string
}

func (p SLeaveRoomAckPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).Bytes()
}

type SPlayerLeftNotificationPayload struct {
	Username  string
	IsNewHost bool
	Message   string
}

func (p SPlayerLeftNotificationPayload) Marshal() []byte {
	return NewWriter().Str(p.Username).Bool(p.IsNewHost).Str(p.Message).Bytes()
}

type CRequestOnlineListPayload struct {
	Token string
}

func (p CRequestOnlineListPayload) Marshal() []byte { return NewWriter().Str(p.Token).Bytes() }

func UnmarshalCRequestOnlineList(b []byte) (CRequestOnlineListPayload, error) {
	r := NewReader(b)
	p := CRequestOnlineListPayload{Token: r.Str()}
	return p, r.Err()
}

type SOnlineListPayload struct {
	Usernames []string
}

func (p SOnlineListPayload) Marshal() []byte {
	w := NewWriter().U16(uint16(len(p.Usernames)))
	for _, u := range p.Usernames {
		w.Str(u)
	}
	return w.Bytes()
}

type CKickPlayerPayload struct {
	Token          string
	RoomID         uint32
	TargetUsername string
}

func (p CKickPlayerPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).Str(p.TargetUsername).Bytes()
}

func UnmarshalCKickPlayer(b []byte) (CKickPlayerPayload, error) {
	r := NewReader(b)
	p := CKickPlayerPayload{Token: r.Str(), RoomID: r.U32(), TargetUsername: r.Str()}
	return p, r.Err()
}

type SKickResultPayload struct {
	Code    ResultCode
	Message string
}

func (p SKickResultPayload) Marshal() []byte {
	return NewWriter().U8(uint8(p.Code)).Str(p.Message).Bytes()
}

// ---------------------------------------------------------------------------
// Invite / Match setup
// ---------------------------------------------------------------------------

type CSendInvitePayload struct {
	Token          string
	TargetUsername string
	RoomID         uint32
}

func (p CSendInvitePayload) Marshal() []byte {
	return NewWriter().Str(p.Token).Str(p.TargetUsername).U32(p.RoomID).Bytes()
}

func UnmarshalCSendInvite(b []byte) (CSendInvitePayload, error) {
	r := NewReader(b)
	p := CSendInvitePayload{Token: r.Str(), TargetUsername: r.Str(), RoomID: r.U32()}
	return p, r.Err()
}

type SInviteReceivedPayload struct {
	FromUsername string
	RoomID       uint32
	RoomName     string
}

func (p SInviteReceivedPayload) Marshal() []byte {
	return NewWriter().Str(p.FromUsername).U32(p.RoomID).Str(p.RoomName).Bytes()
}

type CRespondInvitePayload struct {
	Token        string
	FromUsername string
	Accept       bool
}

func (p CRespondInvitePayload) Marshal() []byte {
	return NewWriter().Str(p.Token).Str(p.FromUsername).Bool(p.Accept).Bytes()
}

func UnmarshalCRespondInvite(b []byte) (CRespondInvitePayload, error) {
	r := NewReader(b)
	p := CRespondInvitePayload{Token: r.Str(), FromUsername: r.Str(), Accept: r.Bool()}
	return p, r.Err()
}

type SInviteResponsePayload struct {
	ToUsername string
	Accepted   bool
	Message    string
}

func (p SInviteResponsePayload) Marshal() []byte {
	return NewWriter().Str(p.ToUsername).Bool(p.Accepted).Str(p.Message).Bytes()
}

// ---------------------------------------------------------------------------
// Ready / Start
// ---------------------------------------------------------------------------

type CSetReadyPayload struct {
	Token  string
	RoomID uint32
	Ready  bool
}

func (p CSetReadyPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).Bool(p.Ready).Bytes()
}

func UnmarshalCSetReady(b []byte) (CSetReadyPayload, error) {
	r := NewReader(b)
	p := CSetReadyPayload{Token: r.Str(), RoomID: r.U32(), Ready: r.Bool()}
	return p, r.Err()
}

type SPlayerReadyUpdatePayload struct {
	Username string
	Ready    bool
}

func (p SPlayerReadyUpdatePayload) Marshal() []byte {
	return NewWriter().Str(p.Username).Bool(p.Ready).Bytes()
}

type CStartGamePayload struct {
	Token  string
	RoomID uint32
}

func (p CStartGamePayload) Marshal() []byte { return NewWriter().Str(p.Token).U32(p.RoomID).Bytes() }

func UnmarshalCStartGame(b []byte) (CStartGamePayload, error) {
	r := NewReader(b)
	p := CStartGamePayload{Token: r.Str(), RoomID: r.U32()}
	return p, r.Err()
}

type SGameStartPayload struct {
	RoomID           uint32
	OpponentUsername string
	WordLength       uint32
	CurrentRound     uint8
}

func (p SGameStartPayload) Marshal() []byte {
	return NewWriter().U32(p.RoomID).Str(p.OpponentUsername).U32(p.WordLength).U8(p.CurrentRound).Bytes()
}

// ---------------------------------------------------------------------------
// Game actions
// ---------------------------------------------------------------------------

type CGuessCharPayload struct {
	Token   string
	RoomID  uint32
	MatchID uint32
	Ch      byte
}

func (p CGuessCharPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).U32(p.MatchID).U8(p.Ch).Bytes()
}

func UnmarshalCGuessChar(b []byte) (CGuessCharPayload, error) {
	r := NewReader(b)
	p := CGuessCharPayload{Token: r.Str(), RoomID: r.U32(), MatchID: r.U32(), Ch: r.U8()}
	return p, r.Err()
}

type SGuessCharResultPayload struct {
	Correct           bool
	ExposedPattern    string
	RemainingAttempts uint8
	ScoreGained       uint32
	TotalScore        uint32
	CurrentRound      uint8
	IsYourTurn        bool
}

func (p SGuessCharResultPayload) Marshal() []byte {
	return NewWriter().Bool(p.Correct).Str(p.ExposedPattern).U8(p.RemainingAttempts).
		U32(p.ScoreGained).U32(p.TotalScore).U8(p.CurrentRound).Bool(p.IsYourTurn).Bytes()
}

type CGuessWordPayload struct {
	Token   string
	RoomID  uint32
	MatchID uint32
	Word    string
}

func (p CGuessWordPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).U32(p.MatchID).Str(p.Word).Bytes()
}

func UnmarshalCGuessWord(b []byte) (CGuessWordPayload, error) {
	r := NewReader(b)
	p := CGuessWordPayload{Token: r.Str(), RoomID: r.U32(), MatchID: r.U32(), Word: r.Str()}
	return p, r.Err()
}

type SGuessWordResultPayload struct {
	Correct           bool
	Message           string
	RemainingAttempts uint8
	ScoreGained       uint32
	TotalScore        uint32
	CurrentRound      uint8
	RoundComplete     bool
	NextWordPattern   string
	IsYourTurn        bool
}

func (p SGuessWordResultPayload) Marshal() []byte {
	return NewWriter().Bool(p.Correct).Str(p.Message).U8(p.RemainingAttempts).
		U32(p.ScoreGained).U32(p.TotalScore).U8(p.CurrentRound).Bool(p.RoundComplete).
		Str(p.NextWordPattern).Bool(p.IsYourTurn).Bytes()
}

type CRequestDrawPayload struct {
	Token   string
	RoomID  uint32
	MatchID uint32
}

func (p CRequestDrawPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).U32(p.MatchID).Bytes()
}

func UnmarshalCRequestDraw(b []byte) (CRequestDrawPayload, error) {
	r := NewReader(b)
	p := CRequestDrawPayload{Token: r.Str(), RoomID: r.U32(), MatchID: r.U32()}
	return p, r.Err()
}

type SDrawRequestPayload struct {
	FromUsername string
	MatchID      uint32
}

func (p SDrawRequestPayload) Marshal() []byte {
	return NewWriter().Str(p.FromUsername).U32(p.MatchID).Bytes()
}

type CEndGamePayload struct {
	Token      string
	RoomID     uint32
	MatchID    uint32
	ResultCode uint8
	Message    string
}

func (p CEndGamePayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).U32(p.MatchID).U8(p.ResultCode).Str(p.Message).Bytes()
}

func UnmarshalCEndGame(b []byte) (CEndGamePayload, error) {
	r := NewReader(b)
	p := CEndGamePayload{
		Token: r.Str(), RoomID: r.U32(), MatchID: r.U32(),
		ResultCode: r.U8(), Message: r.Str(),
	}
	return p, r.Err()
}

type SGameEndPayload struct {
	MatchID    uint32
	ResultCode uint8
	Summary    string
}

func (p SGameEndPayload) Marshal() []byte {
	return NewWriter().U32(p.MatchID).U8(p.ResultCode).Str(p.Summary).Bytes()
}

type CRequestSummaryPayload struct {
	Token   string
	RoomID  uint32
	MatchID uint32
}

func (p CRequestSummaryPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U32(p.RoomID).U32(p.MatchID).Bytes()
}

func UnmarshalCRequestSummary(b []byte) (CRequestSummaryPayload, error) {
	r := NewReader(b)
	p := CRequestSummaryPayload{Token: r.Str(), RoomID: r.U32(), MatchID: r.U32()}
	return p, r.Err()
}

type SGameSummaryPayload struct {
	Player1Username string
	Player1Round1   uint32
	Player1Round2   uint32
	Player1Round3   uint32
	Player1Total    uint32
	Player2Username string
	Player2Round1   uint32
	Player2Round2   uint32
	Player2Round3   uint32
	Player2Total    uint32
	WinnerUsername  string
}

func (p SGameSummaryPayload) Marshal() []byte {
	return NewWriter().
		Str(p.Player1Username).U32(p.Player1Round1).U32(p.Player1Round2).U32(p.Player1Round3).U32(p.Player1Total).
		Str(p.Player2Username).U32(p.Player2Round1).U32(p.Player2Round2).U32(p.Player2Round3).U32(p.Player2Total).
		Str(p.WinnerUsername).Bytes()
}

// ---------------------------------------------------------------------------
// History / leaderboard
// ---------------------------------------------------------------------------

type CRequestHistoryPayload struct {
	Token string
	Limit uint16
}

func (p CRequestHistoryPayload) Marshal() []byte { return NewWriter().Str(p.Token).U16(p.Limit).Bytes() }

func UnmarshalCRequestHistory(b []byte) (CRequestHistoryPayload, error) {
	r := NewReader(b)
	p := CRequestHistoryPayload{Token: r.Str(), Limit: r.U16()}
	return p, r.Err()
}

// HistoryEntry is one row of a player's match history.
type HistoryEntry struct {
	Datetime string
	Opponent string
	Result   uint8 // 0 lose, 1 win, 2 draw
	Round1   uint32
	Round2   uint32
	Round3   uint32
}

type SHistoryListPayload struct {
	Entries []HistoryEntry
}

func (p SHistoryListPayload) Marshal() []byte {
	w := NewWriter().U16(uint16(len(p.Entries)))
	for _, e := range p.Entries {
		w.Str(e.Datetime).Str(e.Opponent).U8(e.Result).U32(e.Round1).U32(e.Round2).U32(e.Round3)
	}
	return w.Bytes()
}

type CRequestLeaderboardPayload struct {
	Token string
	Limit uint16
}

func (p CRequestLeaderboardPayload) Marshal() []byte {
	return NewWriter().Str(p.Token).U16(p.Limit).Bytes()
}

func UnmarshalCRequestLeaderboard(b []byte) (CRequestLeaderboardPayload, error) {
	r := NewReader(b)
	p := CRequestLeaderboardPayload{Token: r.Str(), Limit: r.U16()}
	return p, r.Err()
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Username    string
	Wins        uint32
	TotalPoints uint32
}

type SLeaderboardPayload struct {
	Entries []LeaderboardEntry
}

func (p SLeaderboardPayload) Marshal() []byte {
	w := NewWriter().U16(uint16(len(p.Entries)))
	for _, e := range p.Entries {
		w.Str(e.Username).U32(e.Wins).U32(e.TotalPoints)
	}
	return w.Bytes()
}

// ---------------------------------------------------------------------------
// Generic ack / error
// ---------------------------------------------------------------------------

type SAckPayload struct {
	AckForType Type
	Code       ResultCode
	Message    string
}

func (p SAckPayload) Marshal() []byte {
	return NewWriter().U16(uint16(p.AckForType)).U8(uint8(p.Code)).Str(p.Message).Bytes()
}

type SErrorPayload struct {
	ForType Type
	Message string
}

func (p SErrorPayload) Marshal() []byte {
	return NewWriter().U16(uint16(p.ForType)).Str(p.Message).Bytes()
}
