// Package server wires the reactor, the worker pool, and the five game
// services together into one running hangman server.
package server

import (
	"log"
	"sync"

	"hangman/internal/auth"
	"hangman/internal/beforeplay"
	"hangman/internal/dispatch"
	"hangman/internal/match"
	"hangman/internal/protocol"
	"hangman/internal/reactor"
	"hangman/internal/room"
	"hangman/internal/summary"
)

// Config bundles everything Server needs to start.
type Config struct {
	BindAddr        string
	Workers         int
	DataDir         string
	WordsDir        string
	RecvBufferSize  int
	SendBufferLimit int
	Deterministic   bool
}

// Server owns the reactor loop, the worker pool, and every game service. It
// implements reactor.Handler (frame splitting and submission to the pool
// happen on the reactor goroutine; payload decoding and routing happen in
// handle, on a worker) and dispatch.Sink (so the pool can deliver replies back
// through it without importing reactor itself).
type Server struct {
	cfg Config

	reactor *reactor.Reactor
	pool    *dispatch.Pool

	auth       *auth.Service
	rooms      *room.Service
	match      *match.Service
	beforePlay *beforeplay.Service
	summary    *summary.Service

	connsMu sync.Mutex
	conns   map[int]*reactor.Connection
}

// New constructs every service and wires them into a Server. It does not
// start listening; call Run for that.
func New(cfg Config) (*Server, error) {
	authStore := auth.NewFileStore(cfg.DataDir + "/users.txt")
	authSvc, err := auth.New(authStore, auth.NewBcryptHasher())
	if err != nil {
		return nil, err
	}

	roomSvc := room.New()

	matchSvc, err := match.New(cfg.WordsDir, cfg.DataDir+"/history", cfg.Deterministic, authSvc)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		auth:       authSvc,
		rooms:      roomSvc,
		match:      matchSvc,
		beforePlay: beforeplay.New(authSvc, roomSvc, matchSvc),
		summary:    summary.New(authSvc, cfg.DataDir+"/history"),
		conns:      make(map[int]*reactor.Connection),
	}

	rx, err := reactor.New(s, cfg.RecvBufferSize, cfg.SendBufferLimit)
	if err != nil {
		return nil, err
	}
	s.reactor = rx
	s.pool = dispatch.New(cfg.Workers, s, rx.Wake)
	return s, nil
}

// Run binds the listening socket and blocks servicing connections until
// Shutdown is called from another goroutine.
func (s *Server) Run() error {
	if err := s.reactor.Listen(s.cfg.BindAddr); err != nil {
		return err
	}
	log.Printf("hangman server listening on %s (%d workers)", s.cfg.BindAddr, s.cfg.Workers)
	return s.reactor.Run()
}

// Shutdown stops the reactor loop first so no new work arrives, then the
// worker pool. A task that finishes after the loop has exited just leaves
// its callback undelivered.
func (s *Server) Shutdown() {
	s.reactor.Stop()
	s.pool.Stop()
}

// --- reactor.Handler ---------------------------------------------------

// OnAccept registers a newly connected client.
func (s *Server) OnAccept(c *reactor.Connection) {
	s.connsMu.Lock()
	s.conns[c.Fd()] = c
	s.connsMu.Unlock()
}

// OnReadable decodes every complete frame now sitting in c's receive buffer
// and submits each one to the worker pool in order.
func (s *Server) OnReadable(c *reactor.Connection) {
	for {
		status, frame, consumed := protocol.TryDecodeOne(c.PendingRecv())
		switch status {
		case protocol.NeedMore:
			return
		case protocol.Bad:
			s.reactor.Close(c)
			return
		case protocol.Ready:
			c.ConfirmProcessed(consumed)
			fd := c.Fd()
			s.pool.Submit(fd, func() dispatch.Result {
				return s.handle(fd, frame)
			})
		}
	}
}

// OnClose drops every session tied to the closed connection and, for any
// room that session belonged to, runs the same leave-room cleanup a
// voluntary LeaveRoom would have (host succession or room teardown),
// forwarding whatever notification that produces to the player left
// behind. This is scheduled on the worker pool rather than run inline so it
// serializes against any in-flight request from the same fd instead of
// racing it.
func (s *Server) OnClose(c *reactor.Connection) {
	fd := c.Fd()
	s.connsMu.Lock()
	delete(s.conns, fd)
	s.connsMu.Unlock()

	s.pool.Submit(fd, func() dispatch.Result {
		return s.handleDisconnect(fd)
	})
}

// handleDisconnect performs AuthService and RoomService cleanup for a
// socket that just closed.
func (s *Server) handleDisconnect(fd int) dispatch.Result {
	usernames := s.auth.HandleDisconnect(fd)

	var result dispatch.Result
	for _, username := range usernames {
		r, found := s.rooms.GetByUsername(username)
		if !found {
			continue
		}
		res := s.rooms.Leave(r.ID, username)
		for _, n := range res.Notifications {
			result.Outbound = append(result.Outbound, dispatch.Outbound{
				Fd: n.ToFd, Data: protocol.Encode(protocol.SPlayerLeftNotification, n.Payload.Marshal()),
			})
		}
	}
	return result
}

// --- dispatch.Sink -------------------------------------------------------

// SendTo schedules data for delivery to fd's connection, if it's still open.
func (s *Server) SendTo(fd int, data []byte) {
	s.connsMu.Lock()
	c, ok := s.conns[fd]
	s.connsMu.Unlock()
	if !ok {
		return
	}
	s.reactor.Send(c, data)
}

// CloseFd closes fd's connection, if it's still open.
func (s *Server) CloseFd(fd int) {
	s.connsMu.Lock()
	c, ok := s.conns[fd]
	s.connsMu.Unlock()
	if !ok {
		return
	}
	s.reactor.Close(c)
}
