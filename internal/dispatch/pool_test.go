package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu   sync.Mutex
	sent []Outbound
}

func (f *fakeSink) SendTo(fd int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Outbound{Fd: fd, Data: data})
}

func (f *fakeSink) CloseFd(int) {}

func (f *fakeSink) snapshot() []Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outbound(nil), f.sent...)
}

// inlineWake runs callbacks synchronously rather than hopping to a reactor
// goroutine, which is all a test needs from Reactor.Wake.
func inlineWake(fn func()) { fn() }

func TestPoolDeliversRepliesToSink(t *testing.T) {
	sink := &fakeSink{}
	p := New(2, sink, inlineWake)
	defer p.Stop()

	done := make(chan struct{})
	p.Submit(5, func() Result {
		defer close(done)
		return Result{Outbound: []Outbound{{Fd: 5, Data: []byte("hello")}}}
	})

	<-done
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte("hello"), sink.snapshot()[0].Data)
}

func TestPoolSerializesTasksPerConnection(t *testing.T) {
	sink := &fakeSink{}
	p := New(4, sink, inlineWake)
	defer p.Stop()

	const n = 20
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		p.Submit(1, func() Result {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return Result{}
		})
	}

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v, "tasks for the same connection must run in submission order")
	}
}

func TestPoolRunsDifferentConnectionsConcurrently(t *testing.T) {
	sink := &fakeSink{}
	p := New(4, sink, inlineWake)
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan int, 2)

	p.Submit(1, func() Result {
		started <- 1
		<-release
		return Result{}
	})
	p.Submit(2, func() Result {
		started <- 2
		return Result{}
	})

	got := map[int]bool{}
	for i := 0; i < 2; i++ {
		select {
		case fd := <-started:
			got[fd] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for both connections to start concurrently")
		}
	}
	close(release)
	assert.True(t, got[1] && got[2])
}
