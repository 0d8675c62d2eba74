// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Contract between sockets and the readiness dispatcher that polls them.

package api

// ManagedSocket is the view a SocketManager has of a socket.
type ManagedSocket interface {
	// Fd returns the native handle, or -1 once closed.
	Fd() int

	// ReceiveDispatch is invoked by the dispatcher when Fd is readable.
	// Never called concurrently with itself for the same socket.
	ReceiveDispatch()

	// MarkReadyForDeletion is invoked once the dispatcher has permanently removed
	// the socket and no further ReceiveDispatch will start.
	MarkReadyForDeletion()
}

// SocketManager registers sockets for readiness polling.
//
// An implementation must call MarkReadyForDeletion exactly once for every
// socket for which RemoveSocket returned true, and only after guaranteeing no
// further ReceiveDispatch will start for it. MarkReadyForDeletion blocks until
// the socket owner has observed the deletion.
type SocketManager interface {
	// AddSocket starts polling s. Returns false with no state change when s is
	// already registered or resources are exhausted.
	AddSocket(s ManagedSocket) bool

	// RemoveSocket requests deregistration. Returns false if s is not registered.
	// The caller may hold its own lock; MarkReadyForDeletion must be delivered
	// later from the dispatcher, never from inside this call.
	RemoveSocket(s ManagedSocket) bool
}
