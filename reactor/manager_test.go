//go:build linux
// +build linux

package reactor_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/fake"
	"github.com/momentics/hioload-udp/reactor"
	"github.com/momentics/hioload-udp/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const waitFor = 3 * time.Second

func newManager(t *testing.T) *reactor.Manager {
	t.Helper()
	cfg := control.DefaultConfig()
	cfg.PollTimeout = 20 * time.Millisecond
	m, err := reactor.NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func newSocket(t *testing.T, m api.SocketManager) (*socket.Socket, api.Address) {
	t.Helper()
	s, err := socket.New(1, m, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Bind(api.MustParseAddress("127.0.0.1:0")))
	addr, err := s.LocalAddress()
	require.NoError(t, err)
	return s, addr
}

// countingSocket records the manager's calls on top of a real socket.
type countingSocket struct {
	*socket.Socket
	marks      atomic.Int32
	dispatches atomic.Int32
}

func (c *countingSocket) ReceiveDispatch() {
	c.dispatches.Add(1)
	c.Socket.ReceiveDispatch()
}

func (c *countingSocket) MarkReadyForDeletion() {
	c.marks.Add(1)
	c.Socket.MarkReadyForDeletion()
}

// fdHolder occupies an fd in the manager and drains it on every dispatch.
type fdHolder struct {
	fd    int
	reads atomic.Int32
}

func (h *fdHolder) Fd() int { return h.fd }
func (h *fdHolder) ReceiveDispatch() {
	var buf [64]byte
	if _, _, err := unix.Recvfrom(h.fd, buf[:], 0); err == nil {
		h.reads.Add(1)
	}
}
func (h *fdHolder) MarkReadyForDeletion() {}

type invalidSocket struct{}

func (invalidSocket) Fd() int               { return -1 }
func (invalidSocket) ReceiveDispatch()      {}
func (invalidSocket) MarkReadyForDeletion() {}

func TestManager_DeliversThenTearsDown(t *testing.T) {
	m := newManager(t)
	m.Start()

	rx, rxAddr := newSocket(t, m)
	tx, txAddr := newSocket(t, m)

	sink := fake.NewSink()
	require.NoError(t, rx.RegisterSink("rx", sink))
	rx.StartReceiving()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := tx.SendTo([]byte(msg), rxAddr)
		require.NoError(t, err)
	}
	for _, want := range []string{"one", "two", "three"} {
		d, ok := sink.Next(waitFor)
		require.True(t, ok, "datagram %q not delivered", want)
		assert.Equal(t, want, string(d.Data))
		assert.Equal(t, "rx", d.Ctx)
		assert.Equal(t, txAddr, d.From)
	}

	done := make(chan error, 1)
	go func() { done <- rx.CloseBlocking() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("CloseBlocking did not complete")
	}
	assert.False(t, rx.IsValid())
	assert.Equal(t, api.StateAcknowledged, rx.State())

	require.Eventually(t, func() bool {
		return m.Stats()["reactor.deletions"] == uint64(1)
	}, waitFor, time.Millisecond)
	assert.Equal(t, 0, m.Stats()["reactor.registered"])
}

func TestManager_MarkReadyForDeletionOncePerRemoval(t *testing.T) {
	m := newManager(t)
	m.Start()

	s, _ := newSocket(t, m)
	cs := &countingSocket{Socket: s}
	require.True(t, m.AddSocket(cs))
	assert.False(t, m.AddSocket(cs), "duplicate registration must fail")

	require.True(t, m.RemoveSocket(cs))
	assert.False(t, m.RemoveSocket(cs), "second removal must fail")

	require.Eventually(t, func() bool { return cs.marks.Load() == 1 }, waitFor, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), cs.marks.Load())
	// nobody asked the socket to close, so the handle survives
	assert.True(t, s.IsValid())

	require.True(t, m.AddSocket(cs), "socket may be registered again once released")
}

func TestManager_NoDispatchAfterRemoval(t *testing.T) {
	m := newManager(t)
	m.Start()

	s, addr := newSocket(t, m)
	tx, _ := newSocket(t, m)
	cs := &countingSocket{Socket: s}
	require.True(t, m.AddSocket(cs))
	require.True(t, m.RemoveSocket(cs))
	require.Eventually(t, func() bool { return cs.marks.Load() == 1 }, waitFor, time.Millisecond)

	before := cs.dispatches.Load()
	_, err := tx.SendTo([]byte("late"), addr)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, cs.dispatches.Load())
}

func TestManager_RejectsInvalidAndUnknown(t *testing.T) {
	m := newManager(t)
	assert.False(t, m.AddSocket(invalidSocket{}))
	assert.False(t, m.RemoveSocket(invalidSocket{}))

	s, _ := newSocket(t, m)
	assert.False(t, m.RemoveSocket(s))
}

func TestManager_RegisterRefusedAfterStop(t *testing.T) {
	m := newManager(t)
	m.Start()
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	s, _ := newSocket(t, m)
	assert.ErrorIs(t, s.RegisterSink(nil, fake.NewSink()), api.ErrRegistration)
	require.NoError(t, s.Close())
	assert.False(t, s.IsValid())
}

func TestManager_RefusedRegistrationIsNeverDispatched(t *testing.T) {
	m := newManager(t)
	m.Start()

	rx, rxAddr := newSocket(t, m)
	tx, _ := newSocket(t, m)

	holder := &fdHolder{fd: rx.Fd()}
	require.True(t, m.AddSocket(holder))

	sink := fake.NewSink()
	assert.ErrorIs(t, rx.RegisterSink(nil, sink), api.ErrRegistration)
	rx.StartReceiving()

	for i := 0; i < 3; i++ {
		_, err := tx.SendTo([]byte("unseen"), rxAddr)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return holder.reads.Load() == 3 }, waitFor, time.Millisecond)

	assert.Zero(t, sink.Count())
	st := rx.Stats()
	assert.Zero(t, st.DatagramsReceived)
	assert.Zero(t, st.ReceiveErrors)
	assert.Zero(t, st.DatagramsDropped)

	require.True(t, m.RemoveSocket(holder))
	require.Eventually(t, func() bool {
		return m.Stats()["reactor.deletions"] == uint64(1)
	}, waitFor, time.Millisecond)
}

func TestManager_StopReleasesBlockedOwner(t *testing.T) {
	m := newManager(t) // never started: only Stop can complete the handshake
	s, _ := newSocket(t, m)
	require.NoError(t, s.RegisterSink(nil, fake.NewSink()))

	done := make(chan error, 1)
	go func() { done <- s.CloseBlocking() }()
	require.Eventually(t, func() bool {
		return s.State() == api.StateAwaitingManagerAck
	}, waitFor, time.Millisecond)

	require.NoError(t, m.Stop())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop did not release CloseBlocking")
	}
	assert.False(t, s.IsValid())
}

func TestManager_SurvivesPanickingSink(t *testing.T) {
	m := newManager(t)
	m.Start()

	rx, rxAddr := newSocket(t, m)
	tx, _ := newSocket(t, m)

	var calls atomic.Int32
	got := make(chan string, 1)
	require.NoError(t, rx.RegisterSink(nil, api.SinkFunc(func(_ any, buf []byte, _ api.Address) {
		if calls.Add(1) == 1 {
			panic("sink failure")
		}
		got <- string(buf)
	})))
	rx.StartReceiving()

	_, err := tx.SendTo([]byte("boom"), rxAddr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return m.Stats()["reactor.dispatch_panics"] == uint64(1)
	}, waitFor, time.Millisecond)

	_, err = tx.SendTo([]byte("fine"), rxAddr)
	require.NoError(t, err)
	select {
	case msg := <-got:
		assert.Equal(t, "fine", msg)
	case <-time.After(waitFor):
		t.Fatal("dispatcher did not survive sink panic")
	}
}

func TestManager_DebugState(t *testing.T) {
	m := newManager(t)
	s, _ := newSocket(t, m)
	require.True(t, m.AddSocket(s))

	m.RegisterProbe("custom", func() any { return "ok" })
	state := m.DumpState()
	assert.Equal(t, 1, state["reactor.sockets"])
	assert.Equal(t, 0, state["reactor.pending_deletions"])
	assert.Equal(t, "ok", state["custom"])
	assert.Contains(t, state, "platform.cpus")

	// the loop never ran; stop first so Close does not wait on a handshake
	require.NoError(t, m.Stop())
}

func TestNewManager_InvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.MaxEvents = 0
	_, err := reactor.NewManager(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
