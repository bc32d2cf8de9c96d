// Package auth implements session and account management: registration,
// login, logout, and the session lookups every other service needs to turn
// a token into a username.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"hangman/internal/protocol"
)

// Session is an authenticated connection's view of its own account, cached
// at login time so later requests don't need to re-read the user store.
type Session struct {
	Token       string
	Username    string
	Wins        uint32
	TotalPoints uint32
	CreatedAt   time.Time
	ConnFd      int
}

// Service owns the user database and the live session table. Each keeps its
// own mutex; callers never need to hold both at once.
type Service struct {
	usersMu sync.Mutex
	users   map[string]*User

	sessionsMu sync.Mutex
	sessions   map[string]*Session

	store  *FileStore
	hasher PasswordHasher
}

// New loads the user store and returns a ready Service.
func New(store *FileStore, hasher PasswordHasher) (*Service, error) {
	users, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Service{
		users:    users,
		sessions: make(map[string]*Session),
		store:    store,
		hasher:   hasher,
	}, nil
}

// Register creates a new account. File I/O happens after the users mutex is
// released, so a slow disk never blocks logins or guesses from other users.
func (s *Service) Register(username, password string) (protocol.ResultCode, string) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return protocol.Invalid, "username and password cannot be empty"
	}
	if len(username) > 64 || len(password) > 64 {
		return protocol.Invalid, "username or password too long"
	}

	s.usersMu.Lock()
	if _, exists := s.users[username]; exists {
		s.usersMu.Unlock()
		return protocol.Already, "username already exists"
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.usersMu.Unlock()
		return protocol.ServerError, "failed to hash password"
	}
	s.users[username] = &User{Username: username, PasswordHash: hash}
	snapshot := s.snapshotUsersLocked()
	s.usersMu.Unlock()

	if err := s.store.SaveAll(snapshot); err != nil {
		s.usersMu.Lock()
		delete(s.users, username)
		s.usersMu.Unlock()
		return protocol.ServerError, "failed to save account"
	}
	return protocol.OK, "account created successfully"
}

// Login verifies credentials and, on success, opens a new session bound to
// connFd.
func (s *Service) Login(username, password string, connFd int) (protocol.ResultCode, string, *Session) {
	if username == "" || password == "" {
		return protocol.Invalid, "username and password cannot be empty", nil
	}

	s.usersMu.Lock()
	user, ok := s.users[username]
	var snapshot User
	if ok {
		snapshot = *user
	}
	s.usersMu.Unlock()

	if !ok || !s.hasher.Verify(snapshot.PasswordHash, password) {
		return protocol.AuthFail, "invalid username or password", nil
	}

	sess := &Session{
		Token:       generateSessionToken(username),
		Username:    username,
		Wins:        snapshot.Wins,
		TotalPoints: snapshot.TotalPoints,
		CreatedAt:   time.Now(),
		ConnFd:      connFd,
	}

	s.sessionsMu.Lock()
	// A fresh login supersedes any session the same user (or the same
	// socket) already holds.
	for token, old := range s.sessions {
		if old.Username == username || old.ConnFd == connFd {
			delete(s.sessions, token)
		}
	}
	s.sessions[sess.Token] = sess
	s.sessionsMu.Unlock()

	return protocol.OK, "login successful", sess
}

// Logout ends a session.
func (s *Service) Logout(token string) protocol.ResultCode {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return protocol.AuthFail
	}
	delete(s.sessions, token)
	return protocol.OK
}

// ValidateSession resolves a token to its username.
func (s *Service) ValidateSession(token string) (string, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	return sess.Username, true
}

// GetSessionInfo returns a copy of the session for token, if any.
func (s *Service) GetSessionInfo(token string) (Session, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// GetAllSessions returns a snapshot of every live session, used by the
// lobby's online-players listing.
func (s *Service) GetAllSessions() []Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

// GetClientFd returns the fd of username's live session, if it has one.
func (s *Service) GetClientFd(username string) (int, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for _, sess := range s.sessions {
		if sess.Username == username {
			return sess.ConnFd, true
		}
	}
	return 0, false
}

// HandleDisconnect drops every session bound to connFd and returns the
// usernames that were logged out, so the caller can clean up rooms/matches.
func (s *Service) HandleDisconnect(connFd int) []string {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	var gone []string
	for token, sess := range s.sessions {
		if sess.ConnFd == connFd {
			gone = append(gone, sess.Username)
			delete(s.sessions, token)
		}
	}
	return gone
}

// UpdateUserStats adds points and, if isWin, a win to username's record,
// then persists the whole store. Called after a match ends.
func (s *Service) UpdateUserStats(username string, isWin bool, points uint32) error {
	s.usersMu.Lock()
	user, ok := s.users[username]
	if !ok {
		s.usersMu.Unlock()
		return nil
	}
	if isWin {
		user.Wins++
	}
	user.TotalPoints += points
	snapshot := s.snapshotUsersLocked()
	s.usersMu.Unlock()

	return s.store.SaveAll(snapshot)
}

// GetUser returns a copy of username's stored record.
func (s *Service) GetUser(username string) (User, bool) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	return *user, true
}

// GetAllUsers returns a snapshot of every registered account, used by the
// leaderboard.
func (s *Service) GetAllUsers() []User {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out
}

func (s *Service) snapshotUsersLocked() map[string]*User {
	out := make(map[string]*User, len(s.users))
	for k, v := range s.users {
		cp := *v
		out[k] = &cp
	}
	return out
}

func generateSessionToken(username string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s_%d_%s", username, time.Now().UnixNano(), hex.EncodeToString(b[:]))
}
