// Package summary answers the two read-only post-game queries: a player's
// match history and the server-wide leaderboard.
package summary

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"hangman/internal/auth"
	"hangman/internal/protocol"
)

// Service reads history files written by the match package and ranks users
// tracked by the auth package.
type Service struct {
	auth       *auth.Service
	historyDir string
}

// New returns a Service reading per-player history files from historyDir.
func New(authSvc *auth.Service, historyDir string) *Service {
	return &Service{auth: authSvc, historyDir: historyDir}
}

// GetHistory returns username's match history, most recent first, capped at
// limit entries (0 means unlimited).
func (s *Service) GetHistory(token string, limit uint16) protocol.SHistoryListPayload {
	username, ok := s.auth.ValidateSession(token)
	if !ok {
		return protocol.SHistoryListPayload{}
	}

	path := filepath.Join(s.historyDir, username+".txt")
	f, err := os.Open(path)
	if err != nil {
		return protocol.SHistoryListPayload{}
	}
	defer f.Close()

	var entries []protocol.HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := parseHistoryLine(scanner.Text())
		if ok {
			entries = append(entries, entry)
		}
	}

	// The file is append-only, so the most recent match is last.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if limit > 0 && int(limit) < len(entries) {
		entries = entries[:limit]
	}
	return protocol.SHistoryListPayload{Entries: entries}
}

// datetimeWidth is the fixed width of the "2006-01-02 15:04:05" prefix on
// every history line. The timestamp contains colons itself, so the line is
// split positionally rather than purely on the separator.
const datetimeWidth = len("2006-01-02 15:04:05")

func parseHistoryLine(line string) (protocol.HistoryEntry, bool) {
	if len(line) < datetimeWidth+1 || line[datetimeWidth] != ':' {
		return protocol.HistoryEntry{}, false
	}
	datetime := line[:datetimeWidth]
	parts := strings.Split(line[datetimeWidth+1:], ":")
	if len(parts) != 5 {
		return protocol.HistoryEntry{}, false
	}
	r1, err1 := strconv.ParseUint(parts[2], 10, 32)
	r2, err2 := strconv.ParseUint(parts[3], 10, 32)
	r3, err3 := strconv.ParseUint(parts[4], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return protocol.HistoryEntry{}, false
	}
	return protocol.HistoryEntry{
		Datetime: datetime,
		Opponent: parts[0],
		Result:   resultCodeFor(parts[1]),
		Round1:   uint32(r1),
		Round2:   uint32(r2),
		Round3:   uint32(r3),
	}, true
}

func resultCodeFor(label string) uint8 {
	switch label {
	case "win":
		return 1
	case "draw":
		return 2
	default:
		return 0
	}
}

// GetLeaderboard returns the top-ranked users by wins, then total points,
// capped at limit rows (0 means top 10).
func (s *Service) GetLeaderboard(token string, limit uint16) protocol.SLeaderboardPayload {
	if _, ok := s.auth.ValidateSession(token); !ok {
		return protocol.SLeaderboardPayload{}
	}

	users := s.auth.GetAllUsers()
	sort.Slice(users, func(i, j int) bool {
		if users[i].Wins != users[j].Wins {
			return users[i].Wins > users[j].Wins
		}
		return users[i].TotalPoints > users[j].TotalPoints
	})

	n := int(limit)
	if n == 0 {
		n = 10
	}
	if n > len(users) {
		n = len(users)
	}

	entries := make([]protocol.LeaderboardEntry, 0, n)
	for _, u := range users[:n] {
		entries = append(entries, protocol.LeaderboardEntry{
			Username:    u.Username,
			Wins:        u.Wins,
			TotalPoints: u.TotalPoints,
		})
	}
	return protocol.SLeaderboardPayload{Entries: entries}
}
