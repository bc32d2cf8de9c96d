package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRecvBufferTracksCursor(t *testing.T) {
	c := newConnection(3, "127.0.0.1:1", 1<<20)
	c.AppendRecv([]byte("hello world"))
	assert.Equal(t, []byte("hello world"), c.PendingRecv())

	c.ConfirmProcessed(6)
	assert.Equal(t, []byte("world"), c.PendingRecv())
}

func TestConnectionConfirmProcessedResetsWhenFullyConsumed(t *testing.T) {
	c := newConnection(3, "", 1<<20)
	c.AppendRecv([]byte("abc"))
	c.ConfirmProcessed(3)
	assert.Empty(t, c.PendingRecv())
	assert.Equal(t, 0, c.recvPos)
}

func TestConnectionCompactsRecvPastHalfCap(t *testing.T) {
	c := newConnection(3, "", 1<<20)
	c.AppendRecv(make([]byte, 5000))

	// The trigger is a consumed prefix strictly greater than half the 8 KiB
	// soft cap, i.e. 4096 bytes.
	c.ConfirmProcessed(4096)
	assert.Equal(t, 4096, c.recvPos)

	c.ConfirmProcessed(1)
	require.Equal(t, 0, c.recvPos)
	assert.Len(t, c.recvBuf, 903)
}

func TestConnectionCompactsSendPastHalfCap(t *testing.T) {
	c := newConnection(3, "", 1<<20)
	c.QueueSend(make([]byte, 5000))

	c.ConfirmSent(4096)
	assert.Equal(t, 4096, c.sendPos)
	assert.Len(t, c.PendingSend(), 904)

	c.ConfirmSent(1)
	require.Equal(t, 0, c.sendPos)
	assert.Len(t, c.sendBuf, 903)
	assert.Len(t, c.PendingSend(), 903)
}

func TestConnectionQueueSendReportsOverLimit(t *testing.T) {
	c := newConnection(3, "", 10)
	over := c.QueueSend([]byte("short"))
	assert.False(t, over)

	over = c.QueueSend([]byte("this pushes it past the cap"))
	assert.True(t, over)
}

func TestConnectionSendCursorAdvancesAndResets(t *testing.T) {
	c := newConnection(3, "", 1<<20)
	c.QueueSend([]byte("payload"))
	assert.True(t, c.HasPendingSend())

	c.ConfirmSent(4)
	assert.Equal(t, []byte("oad"), c.PendingSend())
	assert.True(t, c.HasPendingSend())

	c.ConfirmSent(3)
	assert.False(t, c.HasPendingSend())
	assert.Equal(t, 0, c.sendPos)
	assert.Empty(t, c.sendBuf)
}
