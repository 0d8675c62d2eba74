// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket contracts.

package fake

import (
	"sync"

	"github.com/momentics/hioload-udp/api"
)

// Manager is a scripted api.SocketManager. It never polls; tests drive
// ReceiveDispatch themselves.
type Manager struct {
	AcceptAdd    bool // AddSocket result for sockets not yet registered
	AcceptRemove bool // RemoveSocket result for registered sockets
	AutoRelease  bool // call MarkReadyForDeletion in the background after a successful remove

	mu          sync.Mutex
	registered  map[api.ManagedSocket]bool
	addCalls    int
	removeCalls int
	released    chan api.ManagedSocket
}

// NewManager returns a manager that accepts everything and completes
// teardowns on its own.
func NewManager() *Manager {
	return &Manager{
		AcceptAdd:    true,
		AcceptRemove: true,
		AutoRelease:  true,
		registered:   make(map[api.ManagedSocket]bool),
		released:     make(chan api.ManagedSocket, 16),
	}
}

// AddSocket implements api.SocketManager.
func (m *Manager) AddSocket(s api.ManagedSocket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if !m.AcceptAdd || m.registered[s] {
		return false
	}
	m.registered[s] = true
	return true
}

// RemoveSocket implements api.SocketManager.
func (m *Manager) RemoveSocket(s api.ManagedSocket) bool {
	m.mu.Lock()
	m.removeCalls++
	if !m.AcceptRemove || !m.registered[s] {
		m.mu.Unlock()
		return false
	}
	delete(m.registered, s)
	auto := m.AutoRelease
	m.mu.Unlock()

	if auto {
		go m.Release(s)
	}
	return true
}

// Release plays the dispatcher's part of the handshake for s. It blocks until
// the owner acknowledges, then reports s on Released.
func (m *Manager) Release(s api.ManagedSocket) {
	s.MarkReadyForDeletion()
	m.released <- s
}

// Released yields each socket after its MarkReadyForDeletion returned.
func (m *Manager) Released() <-chan api.ManagedSocket { return m.released }

// Registered reports whether s is currently registered.
func (m *Manager) Registered(s api.ManagedSocket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered[s]
}

// AddCalls returns how many times AddSocket was called.
func (m *Manager) AddCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCalls
}

// RemoveCalls returns how many times RemoveSocket was called.
func (m *Manager) RemoveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeCalls
}
