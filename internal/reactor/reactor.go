//go:build linux

// Package reactor implements a single-goroutine, edge-triggered epoll event
// loop: one thread owns every client socket, and blocking work is handed off
// to a worker pool that wakes the loop back up through an eventfd instead of
// touching sockets itself.
package reactor

import (
	"encoding/binary"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// maxEvents bounds a single epoll_wait batch.
const maxEvents = 64

// Handler reacts to reactor events. All three methods run on the reactor
// goroutine, except OnClose for connections still open when Stop is called,
// which runs on Stop's caller after Run has returned; they must never block.
type Handler interface {
	// OnAccept is called once per newly accepted connection.
	OnAccept(c *Connection)
	// OnReadable is called after the reactor has appended newly read bytes
	// to c's receive buffer. The handler is responsible for decoding
	// whatever complete frames are now available and calling
	// c.ConfirmProcessed.
	OnReadable(c *Connection)
	// OnClose is called once, right before a connection's fd is closed.
	OnClose(c *Connection)
}

// Reactor is the single epoll loop. Everything except Wake and Stop must be
// called from the goroutine running Run (Listen may also run before Run).
type Reactor struct {
	epfd      int
	listenFd  int
	wakeFd    int
	handler   Handler
	conns     map[int]*Connection
	recvChunk int
	sendCap   int

	mu        sync.Mutex
	wakeQueue []func()

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Reactor. recvChunk sizes the per-read scratch buffer;
// sendCap is the per-connection hard cap on buffered but unsent bytes.
func New(handler Handler, recvChunk, sendCap int) (*Reactor, error) {
	if recvChunk <= 0 {
		recvChunk = 8192
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, errors.Wrap(err, "eventfd")
	}
	r := &Reactor{
		epfd:      epfd,
		listenFd:  -1,
		wakeFd:    wakeFd,
		handler:   handler,
		conns:     make(map[int]*Connection),
		recvChunk: recvChunk,
		sendCap:   sendCap,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	if err := r.addFd(wakeFd, unix.EPOLLIN); err != nil {
		unix.Close(epfd)
		unix.Close(wakeFd)
		return nil, err
	}
	return r, nil
}

// Listen binds and starts listening on addr ("host:port"), registering the
// listening socket for accept events.
func (r *Reactor) Listen(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrap(err, "split host port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrap(err, "parse port")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return errors.Wrap(err, "socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "setsockopt reuseaddr")
	}

	var sa unix.SockaddrInet4
	sa.Port = port
	if host != "" && host != "0.0.0.0" {
		ip := net.ParseIP(host).To4()
		if ip == nil {
			unix.Close(fd)
			return errors.Errorf("invalid bind address %q", host)
		}
		copy(sa.Addr[:], ip)
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "bind")
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "listen")
	}

	r.listenFd = fd
	return r.addFd(fd, unix.EPOLLIN)
}

func (r *Reactor) addFd(fd int, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: events,
	})
}

func (r *Reactor) modifyFd(fd int, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: events,
	})
}

func (r *Reactor) removeFd(fd int) {
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Run blocks, servicing epoll events until Stop is called.
func (r *Reactor) Run() error {
	defer close(r.doneCh)
	events := make([]unix.EpollEvent, maxEvents)
	for {
		select {
		case <-r.stopCh:
			return nil
		default:
		}

		n, err := unix.EpollWait(r.epfd, events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return errors.Wrap(err, "epoll_wait")
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch {
			case fd == r.listenFd:
				r.acceptLoop()
			case fd == r.wakeFd:
				r.drainWake()
			default:
				r.handleEvent(fd, events[i].Events)
			}
		}
	}
}

// Stop asks the reactor goroutine to exit once it next wakes up and blocks
// until Run has returned.
func (r *Reactor) Stop() {
	close(r.stopCh)
	<-r.doneCh
	for fd, c := range r.conns {
		r.handler.OnClose(c)
		unix.Close(fd)
	}
	if r.listenFd >= 0 {
		unix.Close(r.listenFd)
	}
	unix.Close(r.wakeFd)
	unix.Close(r.epfd)
}

// acceptLoop drains the accept queue; the listening socket is edge
// triggered, so every readable event must accept until EAGAIN.
func (r *Reactor) acceptLoop() {
	for {
		fd, sa, err := unix.Accept4(r.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			return
		}

		remote := remoteAddrString(sa)
		c := newConnection(fd, remote, r.sendCap)
		if err := r.addFd(fd, unix.EPOLLIN|unix.EPOLLET); err != nil {
			unix.Close(fd)
			continue
		}
		r.conns[fd] = c
		r.handler.OnAccept(c)
	}
}

func remoteAddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return ip.String() + ":" + strconv.Itoa(a.Port)
	default:
		return "unknown"
	}
}

func (r *Reactor) handleEvent(fd int, ev uint32) {
	c, ok := r.conns[fd]
	if !ok {
		return
	}
	if ev&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		r.closeConn(c)
		return
	}
	if ev&unix.EPOLLIN != 0 {
		if !r.readFrom(c) {
			return
		}
	}
	if ev&unix.EPOLLOUT != 0 {
		r.flush(c)
	}
}

// readFrom drains the socket until EAGAIN, since EPOLLET only fires once per
// readability transition. It returns false if the connection was closed.
func (r *Reactor) readFrom(c *Connection) bool {
	buf := make([]byte, r.recvChunk)
	for {
		n, err := unix.Read(c.fd, buf)
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			r.closeConn(c)
			return false
		}
		if n == 0 {
			r.closeConn(c)
			return false
		}
		c.AppendRecv(buf[:n])
	}
	r.handler.OnReadable(c)
	return !c.closed
}

// flush writes as much of the pending send buffer as the socket will take.
func (r *Reactor) flush(c *Connection) {
	for c.HasPendingSend() {
		pending := c.PendingSend()
		n, err := unix.Write(c.fd, pending)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			r.closeConn(c)
			return
		}
		c.ConfirmSent(n)
	}
	_ = r.modifyFd(c.fd, unix.EPOLLIN|unix.EPOLLET)
}

// Send queues data for c and arms EPOLLOUT interest if the socket can't take
// it all immediately. Must run on the reactor goroutine: call it directly
// from a Handler method, or schedule it via Wake from another goroutine.
func (r *Reactor) Send(c *Connection, data []byte) {
	if c.closed {
		return
	}
	if over := c.QueueSend(data); over {
		r.closeConn(c)
		return
	}
	r.flush(c)
	if c.HasPendingSend() {
		_ = r.modifyFd(c.fd, unix.EPOLLIN|unix.EPOLLOUT|unix.EPOLLET)
	}
}

// Close closes c immediately. Must run on the reactor goroutine.
func (r *Reactor) Close(c *Connection) {
	r.closeConn(c)
}

func (r *Reactor) closeConn(c *Connection) {
	if c.closed {
		return
	}
	c.closed = true
	r.removeFd(c.fd)
	delete(r.conns, c.fd)
	r.handler.OnClose(c)
	unix.Close(c.fd)
}

// Wake schedules fn to run on the reactor goroutine and wakes it if it's
// blocked in epoll_wait. Safe to call from any goroutine; this is how the
// worker pool delivers finished-task callbacks back to the reactor without
// touching a socket itself.
func (r *Reactor) Wake(fn func()) {
	r.mu.Lock()
	r.wakeQueue = append(r.wakeQueue, fn)
	r.mu.Unlock()

	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], 1)
	_, _ = unix.Write(r.wakeFd, b[:])
}

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(r.wakeFd, buf[:])
		if err != nil {
			break
		}
	}

	r.mu.Lock()
	q := r.wakeQueue
	r.wakeQueue = nil
	r.mu.Unlock()

	for _, fn := range q {
		fn()
	}
}
