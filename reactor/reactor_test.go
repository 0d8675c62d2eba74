//go:build linux
// +build linux

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReactor_WakeIsNotReported(t *testing.T) {
	r, err := NewReactor(8)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Wake())
	require.NoError(t, r.Wake())
	events := make([]Event, 8)
	n, err := r.Wait(events, 1000)
	require.NoError(t, err)
	assert.Zero(t, n)

	// drained: the next wait times out
	start := time.Now()
	n, err = r.Wait(events, 20)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestReactor_ReportsReadableUntilDrained(t *testing.T) {
	r, err := NewReactor(8)
	require.NoError(t, err)
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, r.Register(fds[0]))
	_, err = unix.Write(fds[1], []byte("a"))
	require.NoError(t, err)
	_, err = unix.Write(fds[1], []byte("b"))
	require.NoError(t, err)

	events := make([]Event, 8)
	buf := make([]byte, 16)
	for i := 0; i < 2; i++ {
		n, err := r.Wait(events, 1000)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.Equal(t, fds[0], events[0].Fd)
		assert.True(t, events[0].Readable)
		_, err = unix.Read(fds[0], buf)
		require.NoError(t, err)
	}

	n, err := r.Wait(events, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Unregister(fds[0]))
	assert.Error(t, r.Unregister(fds[0]))
}
