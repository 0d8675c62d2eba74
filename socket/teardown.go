// File: socket/teardown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Two-phase close handshake between the owner and the dispatcher.

package socket

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-udp/api"
	"go.uber.org/zap"
)

// CloseBlocking deregisters the socket and waits until the manager has closed
// the handle via MarkReadyForDeletion.
//
// If the manager refuses deregistration (never registered, already removed,
// manager stopped) it returns an error matching api.ErrDeregistration at once
// and leaves the handle open. A second call while a teardown is in flight
// returns api.ErrTeardownInProgress. On nil return IsValid is false and the
// dispatcher no longer references the socket.
//
// Must not be called from inside a sink callback: the dispatcher that would
// complete the handshake is the goroutine running the callback.
func (s *Socket) CloseBlocking() error {
	s.mu.Lock()
	if s.td != nil && !s.closeAcknowledged {
		s.mu.Unlock()
		return api.NewError(api.ErrCodeTeardownInProgress, "close", nil)
	}
	s.wantsIncoming.Store(false)
	if s.fd.Load() == invalidFd {
		s.mu.Unlock()
		return api.NewError(api.ErrCodeDeregistration, "close", api.ErrSocketClosed)
	}
	td := &teardown{
		deleted: make(chan struct{}),
		acked:   make(chan struct{}),
	}
	s.closeRequested = true
	s.td = td

	// s.mu stays held across RemoveSocket: a MarkReadyForDeletion racing this
	// call blocks until the manager's answer is recorded. The manager must not
	// call MarkReadyForDeletion synchronously from RemoveSocket.
	Logger().Debug("requesting socket removal", zap.Int32("id", s.ID()))
	if !s.mgr.RemoveSocket(s) {
		s.closeRequested = false
		s.td = nil
		s.mu.Unlock()
		Logger().Debug("manager refused removal", zap.Int32("id", s.ID()))
		return api.NewError(api.ErrCodeDeregistration, "close", nil).WithContext("id", s.ID())
	}
	s.removalAccepted = true
	s.mu.Unlock()

	<-td.deleted

	s.mu.Lock()
	s.closeAcknowledged = true
	s.mu.Unlock()
	close(td.acked)
	Logger().Debug("socket teardown acknowledged", zap.Int32("id", s.ID()))
	return nil
}

// MarkReadyForDeletion is called by the manager once it has permanently
// removed the socket. It closes the handle, wakes CloseBlocking and waits for
// the owner to acknowledge before returning.
//
// Without a teardown in flight, or when the handle was already released by an
// earlier call, it is a no-op.
func (s *Socket) MarkReadyForDeletion() {
	s.mu.Lock()
	td := s.td
	if td == nil || !s.closeRequested || !s.removalAccepted || s.readyForDeletion {
		s.mu.Unlock()
		Logger().Debug("ignoring ready-for-deletion", zap.Int32("id", s.ID()))
		return
	}
	if err := s.closeHandleLocked(); err != nil {
		Logger().Error("socket close failed", zap.Int32("id", s.ID()), zap.Error(err))
	}
	s.readyForDeletion = true
	s.mu.Unlock()

	close(td.deleted)
	<-td.acked
}

// Close releases the socket. A registered socket goes through CloseBlocking;
// when the manager does not hold the socket the handle is closed directly.
// Close is idempotent once the handle is gone.
func (s *Socket) Close() error {
	err := s.CloseBlocking()
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, api.ErrDeregistration):
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.td != nil && !s.closeAcknowledged {
		return api.NewError(api.ErrCodeTeardownInProgress, "close", nil)
	}
	if err := s.closeHandleLocked(); err != nil {
		return fmt.Errorf("close socket %d: %w", s.ID(), err)
	}
	return nil
}

// closeHandleLocked closes fd once. Caller holds s.mu.
func (s *Socket) closeHandleLocked() error {
	fd := int(s.fd.Swap(invalidFd))
	if fd == invalidFd {
		return nil
	}
	return sysClose(fd)
}

// State reports the current teardown stage.
func (s *Socket) State() api.TeardownState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closeAcknowledged:
		return api.StateAcknowledged
	case s.readyForDeletion:
		return api.StateDeleted
	case s.removalAccepted && s.closeRequested:
		return api.StateAwaitingManagerAck
	case s.closeRequested:
		return api.StateClosingRequested
	default:
		return api.StateActive
	}
}
