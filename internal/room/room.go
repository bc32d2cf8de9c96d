// Package room implements lobby rooms: creation, membership, host
// succession, and the ready/in-game state each player tracks before a match
// starts.
package room

import (
	"sync"

	"hangman/internal/protocol"
)

// PlayerState tracks where a room member is in the pre-game flow.
type PlayerState uint8

const (
	StatePreparing PlayerState = iota
	StateReady
	StateInGame
)

// RoomPlayState tracks whether a room is still in the lobby or mid-match.
type RoomPlayState uint8

const (
	RoomLobby RoomPlayState = iota
	RoomPlaying
)

// Player is one room member.
type Player struct {
	Username string
	ConnFd   int
	State    PlayerState
}

// Room is a two-player lobby: a host who created it and, once someone
// accepts an invite, a guest.
type Room struct {
	ID           uint32
	Name         string
	HostUsername string
	Players      []Player
	State        RoomPlayState
}

// Notification is a player-left or host-change event the caller should wire
// to a connection once it returns from the service.
type Notification struct {
	ToFd    int
	Payload protocol.SPlayerLeftNotificationPayload
}

// LeaveResult is everything leaveRoom produced: the ack for the leaver and
// zero or more notifications for whoever remains.
type LeaveResult struct {
	Code          protocol.ResultCode
	Message       string
	Notifications []Notification
}

// Service owns every room. One mutex guards the whole table; contention is
// low enough that anything finer would buy nothing.
type Service struct {
	mu         sync.Mutex
	rooms      map[uint32]*Room
	nextRoomID uint32
}

// New returns an empty Service.
func New() *Service {
	return &Service{rooms: make(map[uint32]*Room), nextRoomID: 1}
}

// Create makes a new room with username as its sole member and host.
func (s *Service) Create(username string, connFd int, roomName string) (protocol.ResultCode, string, uint32) {
	if roomName == "" {
		return protocol.Invalid, "room name cannot be empty", 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextRoomID
	s.nextRoomID++
	s.rooms[id] = &Room{
		ID:           id,
		Name:         roomName,
		HostUsername: username,
		Players:      []Player{{Username: username, ConnFd: connFd, State: StatePreparing}},
		State:        RoomLobby,
	}
	return protocol.OK, "room created successfully", id
}

// Leave removes username from roomID, promoting a new host or deleting the
// room as needed.
func (s *Service) Leave(roomID uint32, username string) LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return LeaveResult{Code: protocol.NotFound, Message: "room not found"}
	}

	wasHost := r.HostUsername == username
	idx := -1
	for i, p := range r.Players {
		if p.Username == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return LeaveResult{Code: protocol.Invalid, Message: "user not in room"}
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	result := LeaveResult{Code: protocol.OK, Message: "left room successfully"}

	if wasHost {
		if len(r.Players) == 0 {
			delete(s.rooms, roomID)
			return result
		}
		newHost := &r.Players[0]
		r.HostUsername = newHost.Username
		result.Notifications = append(result.Notifications, Notification{
			ToFd: newHost.ConnFd,
			Payload: protocol.SPlayerLeftNotificationPayload{
				Username:  username,
				IsNewHost: true,
				Message:   "the host left; you are now the host",
			},
		})
		return result
	}

	for _, p := range r.Players {
		if p.Username == r.HostUsername {
			result.Notifications = append(result.Notifications, Notification{
				ToFd: p.ConnFd,
				Payload: protocol.SPlayerLeftNotificationPayload{
					Username:  username,
					IsNewHost: false,
					Message:   "your opponent left the room",
				},
			})
			break
		}
	}
	return result
}

// Join adds username to roomID as its second player. Used once an invite is
// accepted.
func (s *Service) Join(roomID uint32, username string, connFd int) (protocol.ResultCode, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return protocol.NotFound, "room not found"
	}
	if r.State != RoomLobby {
		return protocol.Fail, "room is already playing"
	}
	for _, p := range r.Players {
		if p.Username == username {
			return protocol.Already, "already in room"
		}
	}
	if len(r.Players) >= 2 {
		return protocol.Fail, "room is full"
	}
	r.Players = append(r.Players, Player{Username: username, ConnFd: connFd, State: StatePreparing})
	return protocol.OK, "joined room successfully"
}

// Kick removes target from roomID. Only callable by the host; the caller is
// responsible for that check before calling Kick.
func (s *Service) Kick(roomID uint32, target string) (protocol.ResultCode, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return protocol.NotFound, "room not found", 0
	}
	if r.State == RoomPlaying {
		return protocol.Fail, "cannot kick during a match", 0
	}
	idx := -1
	for i, p := range r.Players {
		if p.Username == target {
			idx = i
			break
		}
	}
	if idx == -1 {
		return protocol.NotFound, "player not in room", 0
	}
	fd := r.Players[idx].ConnFd
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	return protocol.OK, "player kicked", fd
}

// UpdatePlayerState sets username's ready/preparing/in-game state within
// roomID.
func (s *Service) UpdatePlayerState(roomID uint32, username string, state PlayerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	for i := range r.Players {
		if r.Players[i].Username == username {
			r.Players[i].State = state
			return true
		}
	}
	return false
}

// UpdateRoomState transitions roomID between lobby and playing.
func (s *Service) UpdateRoomState(roomID uint32, state RoomPlayState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.State = state
	return true
}

// Get returns a copy of roomID's current state.
func (s *Service) Get(roomID uint32) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(r), true
}

// GetByUsername finds the room username currently belongs to, if any.
func (s *Service) GetByUsername(username string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		for _, p := range r.Players {
			if p.Username == username {
				return cloneRoom(r), true
			}
		}
	}
	return Room{}, false
}

// IsUserInRoom reports whether username currently belongs to any room.
func (s *Service) IsUserInRoom(username string) bool {
	_, ok := s.GetByUsername(username)
	return ok
}

func cloneRoom(r *Room) Room {
	players := make([]Player, len(r.Players))
	copy(players, r.Players)
	return Room{ID: r.ID, Name: r.Name, HostUsername: r.HostUsername, Players: players, State: r.State}
}
