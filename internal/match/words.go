package match

import (
	"bufio"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"strings"
)

// roundBounds filters each corpus by word length: short words warm up
// round 1, longer ones raise the stakes later.
var roundBounds = map[uint8][2]int{
	1: {4, 7},
	2: {8, 12},
	3: {10, 15},
}

func loadWordFile(path string, minLen, maxLen int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToUpper(strings.Join(strings.Fields(scanner.Text()), ""))
		if len(word) >= minLen && len(word) <= maxLen {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}

func (s *Service) loadWords(wordsDir string) error {
	round1, err := loadWordFile(filepath.Join(wordsDir, "words_round1.txt"), roundBounds[1][0], roundBounds[1][1])
	if err != nil {
		return err
	}
	round2, err := loadWordFile(filepath.Join(wordsDir, "words_round2.txt"), roundBounds[2][0], roundBounds[2][1])
	if err != nil {
		return err
	}
	round3, err := loadWordFile(filepath.Join(wordsDir, "words_round3.txt"), roundBounds[3][0], roundBounds[3][1])
	if err != nil {
		return err
	}
	s.round1Words = round1
	s.round2Words = round2
	s.round3Words = round3
	return nil
}

func (s *Service) wordsForRound(round uint8) []string {
	switch round {
	case 1:
		return s.round1Words
	case 2:
		return s.round2Words
	default:
		return s.round3Words
	}
}

func fallbackWord(round uint8) string {
	switch round {
	case 1:
		return "GAME"
	case 2:
		return "COMPUTER"
	default:
		return "PROGRAMMING"
	}
}

// pickWord returns the word for round. In deterministic mode (used by
// tests) it always returns the corpus's first entry; otherwise it picks
// uniformly at random. An empty corpus falls back to a fixed word so a match
// can still start with no word files on disk.
func (s *Service) pickWord(round uint8) string {
	words := s.wordsForRound(round)
	if len(words) == 0 {
		return fallbackWord(round)
	}
	if s.Deterministic {
		return words[0]
	}
	return words[mathrand.Intn(len(words))]
}
