// Package match implements the three-round hangman game itself: word
// selection, turn order, scoring, round transitions, and match history.
package match

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"hangman/internal/auth"
	"hangman/internal/protocol"
)

// PlayerState is one player's progress within the current match.
type PlayerState struct {
	Username          string
	GuessedChars      map[byte]bool
	RemainingAttempts uint8
	Score             uint32
	Round1Score       uint32
	Round2Score       uint32
	Round3Score       uint32
	Finished          bool
	Won               bool
}

func newPlayerState(username string) *PlayerState {
	return &PlayerState{
		Username:          username,
		GuessedChars:      make(map[byte]bool),
		RemainingAttempts: startingAttempts,
	}
}

const startingAttempts = 6

// Match is one room's active (or finished) game.
type Match struct {
	ID           uint32
	RoomID       uint32
	Round1Word   string
	Round2Word   string
	Round3Word   string
	CurrentWord  string
	CurrentRound uint8
	Revealed     map[byte]bool
	CurrentTurn  string
	PlayerOrder  []string
	PlayerStates map[string]*PlayerState
	Active       bool
}

func opponentOf(m *Match, username string) string {
	for _, p := range m.PlayerOrder {
		if p != username {
			return p
		}
	}
	return ""
}

func exposedPattern(word string, guessed map[byte]bool) string {
	var sb strings.Builder
	for i := 0; i < len(word); i++ {
		c := word[i]
		if guessed[c] {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('_')
		}
		if i != len(word)-1 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func calculateCharScore(round uint8, ch byte, word string) uint32 {
	count := uint32(0)
	for i := 0; i < len(word); i++ {
		if word[i] == ch {
			count++
		}
	}
	return pointsPerChar(round) * count
}

func pointsPerChar(round uint8) uint32 {
	switch round {
	case 2:
		return 15
	case 3:
		return 20
	default:
		return 10
	}
}

func wordBonus(round uint8) uint32 {
	switch round {
	case 2:
		return 50
	case 3:
		return 80
	default:
		return 30
	}
}

func wordPenalty(round uint8) uint32 {
	switch round {
	case 2:
		return 15
	case 3:
		return 20
	default:
		return 10
	}
}

// Service owns every in-progress and finished match.
type Service struct {
	mu      sync.Mutex
	matches map[uint32]*Match

	round1Words []string
	round2Words []string
	round3Words []string

	// Deterministic makes word selection always pick a corpus's first
	// entry instead of a random one, so tests know the words in play.
	Deterministic bool

	auth       *auth.Service
	historyDir string
}

// New loads the word corpora from wordsDir and returns a ready Service.
func New(wordsDir, historyDir string, deterministic bool, authSvc *auth.Service) (*Service, error) {
	s := &Service{
		matches:       make(map[uint32]*Match),
		Deterministic: deterministic,
		auth:          authSvc,
		historyDir:    historyDir,
	}
	if err := s.loadWords(wordsDir); err != nil {
		return nil, errors.Wrap(err, "loading word corpora")
	}
	return s, nil
}

// Start creates a new match for roomID with the given players (the first
// player in the slice takes the opening turn).
func (s *Service) Start(roomID uint32, players []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Match{
		ID:           roomID,
		RoomID:       roomID,
		Round1Word:   s.pickWord(1),
		Round2Word:   s.pickWord(2),
		Round3Word:   s.pickWord(3),
		CurrentRound: 1,
		Revealed:     make(map[byte]bool),
		PlayerOrder:  append([]string(nil), players...),
		PlayerStates: make(map[string]*PlayerState),
		Active:       true,
	}
	m.CurrentWord = m.Round1Word
	if len(players) > 0 {
		m.CurrentTurn = players[0]
	}
	for _, p := range players {
		m.PlayerStates[p] = newPlayerState(p)
	}
	s.matches[roomID] = m
}

// WordLength returns the active word's length for roomID, used to build the
// S2C_GameStart reply.
func (s *Service) WordLength(roomID uint32) (int, uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[roomID]
	if !ok {
		return 0, 0, false
	}
	return len(m.CurrentWord), m.CurrentRound, true
}

// CharGuessOutcome is everything a guessChar call produces: the reply for
// the guesser and, if there's an opponent online, the reply to forward to
// them.
type CharGuessOutcome struct {
	Code             protocol.ResultCode
	Message          string
	GuesserUsername  string
	Self             protocol.SGuessCharResultPayload
	HasOpponent      bool
	OpponentUsername string
	OpponentFd       int
	Opponent         protocol.SGuessCharResultPayload
}

// advanceRound applies the shared "round cleared or attempts exhausted"
// transition: swap in the next round's word, clear the shared reveal set,
// and reset every player's per-round attempts and guesses.
func (m *Match) advanceRound() {
	m.CurrentRound++
	switch m.CurrentRound {
	case 2:
		m.CurrentWord = m.Round2Word
	case 3:
		m.CurrentWord = m.Round3Word
	}
	m.Revealed = make(map[byte]bool)
	for _, st := range m.PlayerStates {
		st.GuessedChars = make(map[byte]bool)
		st.RemainingAttempts = startingAttempts
		st.Finished = false
	}
}

// GuessChar applies one character guess by the session's holder.
func (s *Service) GuessChar(token string, roomID uint32, ch byte) CharGuessOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return CharGuessOutcome{Code: protocol.AuthFail, Message: "invalid session"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[roomID]
	if !ok || !m.Active {
		return CharGuessOutcome{Code: protocol.NotFound, Message: "match not found or ended"}
	}
	state, inMatch := m.PlayerStates[username]
	if !inMatch {
		return CharGuessOutcome{Code: protocol.Invalid, Message: "player not in match"}
	}
	if m.CurrentTurn != username {
		return CharGuessOutcome{Code: protocol.Fail, Message: "not your turn"}
	}
	if state.Finished {
		return CharGuessOutcome{Code: protocol.Fail, Message: "you already finished"}
	}

	ch = upperByte(ch)
	correct := strings.IndexByte(m.CurrentWord, ch) >= 0
	var scoreGained uint32
	if correct {
		m.Revealed[ch] = true
		scoreGained = calculateCharScore(m.CurrentRound, ch, m.CurrentWord)
		state.Score += scoreGained
		addRoundScore(state, m.CurrentRound, scoreGained)
	} else if state.RemainingAttempts > 0 {
		state.RemainingAttempts--
	}
	state.GuessedChars[ch] = true

	opponent := opponentOf(m, username)
	switchTurn := true

	won := wordFullyRevealed(m.CurrentWord, m.Revealed)
	if won {
		switchTurn = false
		if m.CurrentRound < 3 {
			m.advanceRound()
		} else {
			state.Finished = true
			state.Won = true
			m.Active = false
		}
	} else if state.RemainingAttempts == 0 {
		switchTurn = false
		if m.CurrentRound < 3 {
			m.advanceRound()
		} else {
			state.Finished = true
			state.Won = false
			m.Active = false
		}
	}

	if switchTurn && opponent != "" {
		m.CurrentTurn = opponent
	}

	freshState := m.PlayerStates[username]
	pattern := exposedPattern(m.CurrentWord, m.Revealed)

	outcome := CharGuessOutcome{
		Code:            protocol.OK,
		GuesserUsername: username,
		Self: protocol.SGuessCharResultPayload{
			Correct:           correct,
			ExposedPattern:    pattern,
			RemainingAttempts: freshState.RemainingAttempts,
			ScoreGained:       scoreGained,
			TotalScore:        freshState.Score,
			CurrentRound:      m.CurrentRound,
			IsYourTurn:        m.CurrentTurn == username,
		},
	}

	if opponent != "" {
		if fd, online := s.auth.GetClientFd(opponent); online {
			oppState := m.PlayerStates[opponent]
			outcome.HasOpponent = true
			outcome.OpponentUsername = opponent
			outcome.OpponentFd = fd
			outcome.Opponent = protocol.SGuessCharResultPayload{
				Correct:           correct,
				ExposedPattern:    pattern,
				RemainingAttempts: oppState.RemainingAttempts,
				ScoreGained:       0,
				TotalScore:        oppState.Score,
				CurrentRound:      m.CurrentRound,
				IsYourTurn:        m.CurrentTurn == opponent,
			}
		}
	}

	return outcome
}

func wordFullyRevealed(word string, revealed map[byte]bool) bool {
	for i := 0; i < len(word); i++ {
		if !revealed[word[i]] {
			return false
		}
	}
	return true
}

func addRoundScore(state *PlayerState, round uint8, gained uint32) {
	switch round {
	case 1:
		state.Round1Score += gained
	case 2:
		state.Round2Score += gained
	case 3:
		state.Round3Score += gained
	}
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// WordGuessOutcome is the reply pair produced by guessing a whole word.
type WordGuessOutcome struct {
	Code             protocol.ResultCode
	Message          string
	GuesserUsername  string
	Self             protocol.SGuessWordResultPayload
	GameEnded        bool
	HasOpponent      bool
	OpponentUsername string
	OpponentFd       int
	Opponent         protocol.SGuessWordResultPayload
}

// GuessWord applies a whole-word guess.
func (s *Service) GuessWord(token string, roomID uint32, guess string) WordGuessOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return WordGuessOutcome{Code: protocol.AuthFail, Message: "invalid session"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[roomID]
	if !ok || !m.Active {
		return WordGuessOutcome{Code: protocol.NotFound, Message: "match not found"}
	}
	if m.CurrentTurn != username {
		return WordGuessOutcome{Code: protocol.Fail, Message: "not your turn"}
	}
	state, inMatch := m.PlayerStates[username]
	if !inMatch {
		return WordGuessOutcome{Code: protocol.Invalid, Message: "player not in match"}
	}
	if state.Finished {
		return WordGuessOutcome{Code: protocol.Fail, Message: "already finished"}
	}

	opponent := opponentOf(m, username)
	switchTurn := true
	correct := strings.ToUpper(strings.TrimSpace(guess)) == m.CurrentWord

	var scoreGained uint32
	message := ""
	if correct {
		scoreGained = wordBonus(m.CurrentRound)
		state.Score += scoreGained
		addRoundScore(state, m.CurrentRound, scoreGained)
	} else {
		penalty := wordPenalty(m.CurrentRound)
		if state.Score >= penalty {
			state.Score -= penalty
			subtractRoundScore(state, m.CurrentRound, penalty)
		} else {
			state.Score = 0
		}
		if state.RemainingAttempts > 0 {
			state.RemainingAttempts--
		}
		message = fmt.Sprintf("Incorrect! Lost %d points", penalty)
	}

	roundComplete := false
	nextPattern := ""
	gameEnded := false

	if correct {
		switchTurn = false
		if m.CurrentRound < 3 {
			roundComplete = true
			message = fmt.Sprintf("Correct! Moving to Round %d!", m.CurrentRound+1)
			m.advanceRound()
			nextPattern = exposedPattern(m.CurrentWord, m.Revealed)
		} else {
			state.Finished = true
			state.Won = true
			gameEnded = true
			m.Active = false
			message = fmt.Sprintf("Correct! You completed all 3 rounds with score %d!", state.Score)
		}
	} else if state.RemainingAttempts == 0 {
		switchTurn = false
		if m.CurrentRound < 3 {
			roundComplete = true
			message += fmt.Sprintf(". Out of attempts! Moving to Round %d.", m.CurrentRound+1)
			m.advanceRound()
			nextPattern = exposedPattern(m.CurrentWord, m.Revealed)
		} else {
			state.Finished = true
			state.Won = false
			gameEnded = true
			m.Active = false
			message = fmt.Sprintf("Out of attempts! Final score: %d", state.Score)
		}
	}

	if switchTurn && opponent != "" {
		m.CurrentTurn = opponent
	}

	outcome := WordGuessOutcome{
		Code:            protocol.OK,
		GuesserUsername: username,
		GameEnded:       gameEnded,
		Self: protocol.SGuessWordResultPayload{
			Correct:           correct,
			Message:           message,
			RemainingAttempts: state.RemainingAttempts,
			ScoreGained:       scoreGained,
			TotalScore:        state.Score,
			CurrentRound:      m.CurrentRound,
			RoundComplete:     roundComplete,
			NextWordPattern:   nextPattern,
			IsYourTurn:        m.CurrentTurn == username,
		},
	}

	if opponent != "" {
		if fd, online := s.auth.GetClientFd(opponent); online {
			oppState := m.PlayerStates[opponent]
			outcome.HasOpponent = true
			outcome.OpponentUsername = opponent
			outcome.OpponentFd = fd
			outcome.Opponent = protocol.SGuessWordResultPayload{
				Correct:           correct,
				Message:           message,
				RemainingAttempts: oppState.RemainingAttempts,
				ScoreGained:       0,
				TotalScore:        oppState.Score,
				CurrentRound:      m.CurrentRound,
				RoundComplete:     roundComplete,
				NextWordPattern:   nextPattern,
				IsYourTurn:        m.CurrentTurn == opponent,
			}
		}
	}

	return outcome
}

func subtractRoundScore(state *PlayerState, round uint8, amount uint32) {
	switch round {
	case 1:
		if state.Round1Score >= amount {
			state.Round1Score -= amount
		}
	case 2:
		if state.Round2Score >= amount {
			state.Round2Score -= amount
		}
	case 3:
		if state.Round3Score >= amount {
			state.Round3Score -= amount
		}
	}
}

// RequestDraw builds the draw-request notification for the requester's
// opponent. A declined draw has no wire reply of its own; the requester
// simply never hears back.
func (s *Service) RequestDraw(token string, roomID, matchID uint32) (protocol.SDrawRequestPayload, int, bool) {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return protocol.SDrawRequestPayload{}, 0, false
	}

	s.mu.Lock()
	m, ok := s.matches[roomID]
	if !ok {
		s.mu.Unlock()
		return protocol.SDrawRequestPayload{}, 0, false
	}
	opponent := opponentOf(m, username)
	s.mu.Unlock()

	if opponent == "" {
		return protocol.SDrawRequestPayload{}, 0, false
	}
	fd, online := s.auth.GetClientFd(opponent)
	if !online {
		return protocol.SDrawRequestPayload{}, 0, false
	}
	return protocol.SDrawRequestPayload{FromUsername: username, MatchID: matchID}, fd, true
}

// EndGameOutcome carries the ack for the caller and, when the opponent is
// online, the opponent's fd so the opponent receives the same GameEnd packet.
type EndGameOutcome struct {
	Code        protocol.ResultCode
	Message     string
	Payload     protocol.SGameEndPayload
	HasOpponent bool
	OpponentFd  int
}

// Result codes a client sends with C2S_EndGame.
const (
	ResultResign = 0
	ResultWin    = 1
	ResultLoss   = 2
	ResultDraw   = 3
)

// EndGame records the outcome of a match for username (and, for a
// resignation or draw, for their opponent too) and updates both the user
// database and each player's history file.
func (s *Service) EndGame(token string, roomID, matchID uint32, resultCode uint8) EndGameOutcome {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return EndGameOutcome{Code: protocol.AuthFail, Message: "invalid session"}
	}

	s.mu.Lock()
	m, ok := s.matches[roomID]
	if !ok {
		s.mu.Unlock()
		return EndGameOutcome{Code: protocol.NotFound, Message: "match not found"}
	}
	m.Active = false
	opponent := opponentOf(m, username)
	userState := clonePlayerState(m.PlayerStates[username])
	oppState := clonePlayerState(m.PlayerStates[opponent])
	s.mu.Unlock()

	var points uint32
	isWin := false
	switch resultCode {
	case ResultWin:
		points = 10
		isWin = true
	case ResultDraw:
		points = 1
	}
	if err := s.auth.UpdateUserStats(username, isWin, points); err != nil {
		log.Printf("[match] updating stats for %s: %v", username, err)
	}
	s.appendHistory(username, opponent, resultCode, userState)

	switch resultCode {
	case ResultResign:
		if opponent != "" {
			if err := s.auth.UpdateUserStats(opponent, true, 10); err != nil {
				log.Printf("[match] updating stats for %s: %v", opponent, err)
			}
			s.appendHistory(opponent, username, ResultWin, oppState)
		}
	case ResultDraw:
		if opponent != "" {
			if err := s.auth.UpdateUserStats(opponent, false, 1); err != nil {
				log.Printf("[match] updating stats for %s: %v", opponent, err)
			}
			s.appendHistory(opponent, username, ResultDraw, oppState)
		}
	}

	outcome := EndGameOutcome{
		Code: protocol.OK,
		Payload: protocol.SGameEndPayload{
			MatchID:    matchID,
			ResultCode: resultCode,
			Summary:    "Game Over",
		},
	}
	if opponent != "" {
		if fd, online := s.auth.GetClientFd(opponent); online {
			outcome.HasOpponent = true
			outcome.OpponentFd = fd
		}
	}
	return outcome
}

func clonePlayerState(st *PlayerState) PlayerState {
	if st == nil {
		return PlayerState{}
	}
	return *st
}

// RequestSummary returns the final per-round breakdown for roomID's match.
func (s *Service) RequestSummary(token string, roomID uint32) (protocol.SGameSummaryPayload, bool) {
	if _, ok := s.auth.ValidateSession(token); !ok {
		return protocol.SGameSummaryPayload{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[roomID]
	if !ok || len(m.PlayerOrder) != 2 {
		return protocol.SGameSummaryPayload{}, false
	}
	p1, p2 := m.PlayerOrder[0], m.PlayerOrder[1]
	s1, s2 := m.PlayerStates[p1], m.PlayerStates[p2]

	winner := ""
	if s1.Score > s2.Score {
		winner = p1
	} else if s2.Score > s1.Score {
		winner = p2
	}

	return protocol.SGameSummaryPayload{
		Player1Username: p1,
		Player1Round1:   s1.Round1Score,
		Player1Round2:   s1.Round2Score,
		Player1Round3:   s1.Round3Score,
		Player1Total:    s1.Score,
		Player2Username: p2,
		Player2Round1:   s2.Round1Score,
		Player2Round2:   s2.Round2Score,
		Player2Round3:   s2.Round3Score,
		Player2Total:    s2.Score,
		WinnerUsername:  winner,
	}, true
}

// resultLabel renders a result code for the history file.
func resultLabel(code uint8) string {
	switch code {
	case ResultWin:
		return "win"
	case ResultResign, ResultLoss:
		return "lose"
	default:
		return "draw"
	}
}

func (s *Service) appendHistory(username, opponent string, resultCode uint8, state PlayerState) {
	if username == "" {
		return
	}
	if err := os.MkdirAll(s.historyDir, 0o755); err != nil {
		log.Printf("[match] creating history dir: %v", err)
		return
	}
	path := filepath.Join(s.historyDir, username+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[match] opening history for %s: %v", username, err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s:%s:%s:%d:%d:%d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		opponent,
		resultLabel(resultCode),
		state.Round1Score, state.Round2Score, state.Round3Score,
	)
	if _, err := f.WriteString(line); err != nil {
		log.Printf("[match] writing history for %s: %v", username, err)
	}
}
