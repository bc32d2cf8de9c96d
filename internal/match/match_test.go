package match

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangman/internal/auth"
	"hangman/internal/protocol"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func newTestSetup(t *testing.T) (*Service, *auth.Service) {
	t.Helper()
	dir := t.TempDir()

	wordsDir := filepath.Join(dir, "words")
	writeWordFile(t, filepath.Join(wordsDir, "words_round1.txt"), "GAME")
	writeWordFile(t, filepath.Join(wordsDir, "words_round2.txt"), "COMPUTER")
	writeWordFile(t, filepath.Join(wordsDir, "words_round3.txt"), "PROGRAMMING")

	authStore := auth.NewFileStore(filepath.Join(dir, "users.txt"))
	authSvc, err := auth.New(authStore, auth.NewBcryptHasher())
	require.NoError(t, err)

	_, _ = authSvc.Register("alice", "pw")
	_, _ = authSvc.Register("bob", "pw")
	_, _, sessA := authSvc.Login("alice", "pw", 1)
	_, _, sessB := authSvc.Login("bob", "pw", 2)
	require.NotNil(t, sessA)
	require.NotNil(t, sessB)

	m, err := New(wordsDir, filepath.Join(dir, "history"), true, authSvc)
	require.NoError(t, err)
	return m, authSvc
}

func writeWordFile(t *testing.T, path, word string) {
	t.Helper()
	require.NoError(t, writeFile(path, word+"\n"))
}

func TestStartMatchPicksDeterministicWord(t *testing.T) {
	svc, _ := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	length, round, ok := svc.WordLength(1)
	require.True(t, ok)
	assert.Equal(t, 4, length) // GAME
	assert.Equal(t, uint8(1), round)
}

func tokenFor(t *testing.T, authSvc *auth.Service, username string) string {
	t.Helper()
	for _, s := range authSvc.GetAllSessions() {
		if s.Username == username {
			return s.Token
		}
	}
	t.Fatalf("no session for %s", username)
	return ""
}

func TestGuessCharCorrectRevealsAndScores(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.GuessChar(tokenFor(t, authSvc, "alice"), 1, 'G')
	require.Equal(t, protocol.OK, outcome.Code)
	assert.True(t, outcome.Self.Correct)
	assert.Equal(t, uint32(10), outcome.Self.ScoreGained)
	assert.Contains(t, outcome.Self.ExposedPattern, "G")
}

func TestGuessCharRejectsWrongTurn(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.GuessChar(tokenFor(t, authSvc, "bob"), 1, 'G')
	assert.Equal(t, protocol.Fail, outcome.Code)
}

func TestGuessCharSwitchesTurnOnMiss(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.GuessChar(tokenFor(t, authSvc, "alice"), 1, 'Z')
	require.Equal(t, protocol.OK, outcome.Code)
	assert.False(t, outcome.Self.Correct)
	assert.False(t, outcome.Self.IsYourTurn)
}

func TestGuessCharRoundTransitionKeepsTurnAndResets(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})
	alice := tokenFor(t, authSvc, "alice")
	bob := tokenFor(t, authSvc, "bob")

	// GAME: each correct guess swaps the turn until the final letter, which
	// completes the round.
	out := svc.GuessChar(alice, 1, 'G')
	require.Equal(t, protocol.OK, out.Code)
	assert.False(t, out.Self.IsYourTurn)
	out = svc.GuessChar(bob, 1, 'A')
	require.Equal(t, protocol.OK, out.Code)
	out = svc.GuessChar(alice, 1, 'M')
	require.Equal(t, protocol.OK, out.Code)

	out = svc.GuessChar(bob, 1, 'E')
	require.Equal(t, protocol.OK, out.Code)
	assert.Equal(t, uint8(2), out.Self.CurrentRound)
	assert.True(t, out.Self.IsYourTurn, "the player who completed the round opens the next one")
	assert.Equal(t, uint8(6), out.Self.RemainingAttempts, "attempts reset on round transition")
	assert.NotContains(t, out.Self.ExposedPattern, "G", "reveal set clears on round transition")
}

func TestGuessWordCompletesRoundAndAdvances(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.GuessWord(tokenFor(t, authSvc, "alice"), 1, "GAME")
	require.Equal(t, protocol.OK, outcome.Code)
	assert.True(t, outcome.Self.Correct)
	assert.True(t, outcome.Self.RoundComplete)
	assert.Equal(t, uint32(30), outcome.Self.ScoreGained)

	_, round, ok := svc.WordLength(1)
	require.True(t, ok)
	assert.Equal(t, uint8(2), round)
}

func TestGuessWordWrongAppliesPenalty(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.GuessWord(tokenFor(t, authSvc, "alice"), 1, "WRONG")
	require.Equal(t, protocol.OK, outcome.Code)
	assert.False(t, outcome.Self.Correct)
	assert.Equal(t, uint32(0), outcome.Self.TotalScore)
}

func TestEndedMatchRejectsFurtherGuesses(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})
	alice := tokenFor(t, authSvc, "alice")

	outcome := svc.EndGame(alice, 1, 1, ResultResign)
	require.Equal(t, protocol.OK, outcome.Code)

	guess := svc.GuessChar(alice, 1, 'G')
	assert.Equal(t, protocol.NotFound, guess.Code)
}

func TestEndGameResignationCreditsOpponent(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})

	outcome := svc.EndGame(tokenFor(t, authSvc, "alice"), 1, 1, ResultResign)
	require.Equal(t, protocol.OK, outcome.Code)

	bob, ok := authSvc.GetUser("bob")
	require.True(t, ok)
	assert.Equal(t, uint32(1), bob.Wins)
}

func TestResultLabelMapping(t *testing.T) {
	assert.Equal(t, "lose", resultLabel(ResultLoss))
	assert.Equal(t, "win", resultLabel(ResultWin))
	assert.Equal(t, "draw", resultLabel(ResultDraw))
	assert.Equal(t, "lose", resultLabel(ResultResign))
}

func TestRequestSummaryPicksWinnerByScore(t *testing.T) {
	svc, authSvc := newTestSetup(t)
	svc.Start(1, []string{"alice", "bob"})
	_ = svc.GuessChar(tokenFor(t, authSvc, "alice"), 1, 'G')

	summary, ok := svc.RequestSummary(tokenFor(t, authSvc, "alice"), 1)
	require.True(t, ok)
	assert.Equal(t, "alice", summary.WinnerUsername)
	assert.Equal(t, uint32(10), summary.Player1Total)
}
