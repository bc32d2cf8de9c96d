package reactor

// Connection owns one client socket's receive and send buffers. It never
// touches the fd itself; the Reactor is the only thing that reads or writes,
// so a Connection can be inspected and mutated freely from the reactor
// goroutine without locking.
type Connection struct {
	fd         int
	remoteAddr string

	recvBuf []byte
	recvPos int // offset of the first unprocessed byte

	sendBuf []byte
	sendPos int // offset of the first unsent byte

	sendLimit int // hard cap on buffered-but-unsent bytes

	closed bool
}

// softCap is the nominal size of each per-connection buffer. A consumed
// prefix larger than half of it is compacted away.
const softCap = 8192

func newConnection(fd int, remoteAddr string, sendLimit int) *Connection {
	return &Connection{fd: fd, remoteAddr: remoteAddr, sendLimit: sendLimit}
}

func (c *Connection) Fd() int            { return c.fd }
func (c *Connection) RemoteAddr() string { return c.remoteAddr }
func (c *Connection) Closed() bool       { return c.closed }

// AppendRecv appends freshly read bytes onto the receive buffer.
func (c *Connection) AppendRecv(b []byte) {
	c.recvBuf = append(c.recvBuf, b...)
}

// PendingRecv returns the bytes read from the socket but not yet decoded.
func (c *Connection) PendingRecv() []byte {
	return c.recvBuf[c.recvPos:]
}

// ConfirmProcessed advances the receive cursor past n bytes that the caller
// has decoded into a complete frame, compacting the buffer once the
// processed prefix gets large enough to be worth reclaiming.
func (c *Connection) ConfirmProcessed(n int) {
	c.recvPos += n
	if c.recvPos == len(c.recvBuf) {
		c.recvBuf = c.recvBuf[:0]
		c.recvPos = 0
		return
	}
	if c.recvPos > softCap/2 {
		c.recvBuf = append(c.recvBuf[:0], c.recvBuf[c.recvPos:]...)
		c.recvPos = 0
	}
}

// QueueSend appends bytes to the send buffer and reports whether the
// outstanding (unsent) portion has crossed the hard cap. A connection whose
// peer isn't draining its socket fast enough is a lost cause; the caller
// should close it when this returns true.
func (c *Connection) QueueSend(b []byte) (overLimit bool) {
	c.sendBuf = append(c.sendBuf, b...)
	return len(c.sendBuf)-c.sendPos > c.sendLimit
}

// PendingSend returns the bytes queued but not yet written to the socket.
func (c *Connection) PendingSend() []byte {
	return c.sendBuf[c.sendPos:]
}

// HasPendingSend reports whether any queued bytes remain unsent.
func (c *Connection) HasPendingSend() bool {
	return c.sendPos < len(c.sendBuf)
}

// ConfirmSent advances the send cursor past n bytes the socket accepted,
// compacting the buffer on the same half-cap rule as the receive side so a
// slowly-draining backlog still reclaims its sent prefix.
func (c *Connection) ConfirmSent(n int) {
	c.sendPos += n
	if c.sendPos == len(c.sendBuf) {
		c.sendBuf = c.sendBuf[:0]
		c.sendPos = 0
		return
	}
	if c.sendPos > softCap/2 {
		c.sendBuf = append(c.sendBuf[:0], c.sendBuf[c.sendPos:]...)
		c.sendPos = 0
	}
}
