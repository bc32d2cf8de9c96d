package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// User is one registered account as kept on disk and in memory.
type User struct {
	Username     string
	PasswordHash string
	Wins         uint32
	TotalPoints  uint32
}

// FileStore persists users as flat text, one "username:hash:wins:points"
// line per account.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads every user from disk. A missing file is treated as an empty
// store rather than an error, since the server creates it on first save.
func (s *FileStore) Load() (map[string]*User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*User{}, nil
		}
		return nil, errors.Wrapf(err, "reading user store %s", s.path)
	}

	users := make(map[string]*User)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 4 {
			continue
		}
		wins, _ := strconv.ParseUint(fields[2], 10, 32)
		points, _ := strconv.ParseUint(fields[3], 10, 32)
		users[fields[0]] = &User{
			Username:     fields[0],
			PasswordHash: fields[1],
			Wins:         uint32(wins),
			TotalPoints:  uint32(points),
		}
	}
	return users, nil
}

// SaveAll overwrites the store with users. It writes a temp file in the
// store's own directory and renames it into place, so a crash mid-write
// never leaves a half-written database behind and readers never observe a
// partial file.
func (s *FileStore) SaveAll(users map[string]*User) error {
	var sb strings.Builder
	for _, u := range users {
		fmt.Fprintf(&sb, "%s:%s:%d:%d\n", u.Username, u.PasswordHash, u.Wins, u.TotalPoints)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating user store dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp user store")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "writing temp user store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp user store")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "renaming user store into place")
	}
	return nil
}
