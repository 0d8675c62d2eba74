// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket lifecycle, configuration, send and receive-dispatch.

package socket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/momentics/hioload-udp/api"
	"go.uber.org/zap"
)

const invalidFd = -1

// sinkBinding pairs a sink with the opaque token passed back on every call.
type sinkBinding struct {
	ctx  any
	sink api.Sink
}

// teardown is one close handshake. Each channel is closed exactly once.
type teardown struct {
	deleted chan struct{} // handle closed by the dispatcher
	acked   chan struct{} // owner observed deletion
}

type counters struct {
	datagramsReceived atomic.Uint64
	bytesReceived     atomic.Uint64
	datagramsDropped  atomic.Uint64
	receiveErrors     atomic.Uint64
	datagramsSent     atomic.Uint64
	bytesSent         atomic.Uint64
	sendErrors        atomic.Uint64
}

// Socket is a non-blocking UDP endpoint polled by an api.SocketManager.
//
// Configuration and send methods belong to the owning goroutine.
// ReceiveDispatch and MarkReadyForDeletion belong to the manager's dispatch
// goroutine.
type Socket struct {
	id   atomic.Int32
	ipv6 bool
	mgr  api.SocketManager

	fd            atomic.Int64
	binding       atomic.Pointer[sinkBinding]
	wantsIncoming atomic.Bool
	lastError     atomic.Uintptr

	// dispatch goroutine only
	recvBuf [api.MaxDatagramSize]byte

	// mu guards the teardown flags and every syscall the owner makes on fd.
	mu                sync.Mutex
	closeRequested    bool
	removalAccepted   bool
	readyForDeletion  bool
	closeAcknowledged bool
	td                *teardown

	stats counters
}

// New creates a UDP socket for the requested family in non-blocking,
// close-on-exec mode. The socket is not polled until RegisterSink succeeds.
func New(id int32, mgr api.SocketManager, ipv6 bool) (*Socket, error) {
	if mgr == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "socket create", errors.New("nil manager"))
	}
	fd, err := sysSocket(ipv6)
	if err != nil {
		Logger().Error("socket create failed", zap.Int32("id", id), zap.Bool("ipv6", ipv6), zap.Error(err))
		return nil, api.NewError(api.ErrCodeConfiguration, "socket create", err).WithContext("ipv6", ipv6)
	}
	s := &Socket{ipv6: ipv6, mgr: mgr}
	s.id.Store(id)
	s.fd.Store(int64(fd))
	Logger().Debug("socket created", zap.Int32("id", id), zap.Int("fd", fd), zap.Bool("ipv6", ipv6))
	return s, nil
}

// ID returns the diagnostic identifier.
func (s *Socket) ID() int32 { return s.id.Load() }

// RebindID replaces the diagnostic identifier. It has no effect on networking
// state and always succeeds.
func (s *Socket) RebindID(id int32) error {
	s.id.Store(id)
	return nil
}

// IPv6 reports the address family chosen at construction.
func (s *Socket) IPv6() bool { return s.ipv6 }

// Fd returns the native handle, or -1 once closed.
func (s *Socket) Fd() int { return int(s.fd.Load()) }

// IsValid reports whether the handle is still open.
func (s *Socket) IsValid() bool { return s.fd.Load() != invalidFd }

// LastError returns the errno of the most recent failed configuration or send
// call, or 0.
func (s *Socket) LastError() syscall.Errno { return syscall.Errno(s.lastError.Load()) }

// RegisterSink stores sink and ctx, then asks the manager to start polling.
// If the manager refuses, the binding stays stored and the call may be retried.
func (s *Socket) RegisterSink(ctx any, sink api.Sink) error {
	if sink == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "register sink", errors.New("nil sink"))
	}
	if !s.IsValid() {
		return api.NewError(api.ErrCodeClosed, "register sink", nil)
	}
	s.binding.Store(&sinkBinding{ctx: ctx, sink: sink})

	if !s.mgr.AddSocket(s) {
		Logger().Debug("manager refused socket", zap.Int32("id", s.ID()))
		return api.NewError(api.ErrCodeRegistration, "register sink", nil).WithContext("id", s.ID())
	}
	Logger().Debug("socket added to manager", zap.Int32("id", s.ID()))
	return nil
}

// StartReceiving authorizes delivery of inbound datagrams to the sink.
func (s *Socket) StartReceiving() { s.wantsIncoming.Store(true) }

// StopReceiving makes dispatch discard inbound datagrams.
func (s *Socket) StopReceiving() { s.wantsIncoming.Store(false) }

// withFd runs fn with the live handle while holding the teardown lock, so the
// dispatcher cannot close it underneath.
func (s *Socket) withFd(op string, fn func(fd int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd := int(s.fd.Load())
	if fd == invalidFd {
		return api.NewError(api.ErrCodeClosed, op, nil)
	}
	return fn(fd)
}

func (s *Socket) recordError(op string, err error) {
	errno := api.ErrnoOf(err)
	s.lastError.Store(uintptr(errno))
	Logger().Error(op+" failed", zap.Int32("id", s.ID()), zap.Int("errno", int(errno)), zap.Error(err))
}

// SetSocketOption passes value through to setsockopt(2).
func (s *Socket) SetSocketOption(level, name int, value []byte) error {
	return s.withFd("setsockopt", func(fd int) error {
		if err := sysSetsockopt(fd, level, name, value); err != nil {
			s.recordError("setsockopt", err)
			return api.NewError(api.ErrCodeConfiguration, "setsockopt", err).
				WithContext("level", level).WithContext("name", name)
		}
		return nil
	})
}

// SetTypeOfService sets IP_TOS (IPV6_TCLASS on IPv6 sockets).
func (s *Socket) SetTypeOfService(tos int) error {
	var raw [4]byte
	binary.NativeEndian.PutUint32(raw[:], uint32(int32(tos)))
	level, name := tosOption(s.ipv6)
	if err := s.SetSocketOption(level, name, raw[:]); err != nil {
		return fmt.Errorf("set type of service %d: %w", tos, err)
	}
	return nil
}

// Bind binds the handle to a local address.
func (s *Socket) Bind(addr api.Address) error {
	return s.withFd("bind", func(fd int) error {
		if err := sysBind(fd, addr, s.ipv6); err != nil {
			s.recordError("bind", err)
			return api.NewError(api.ErrCodeConfiguration, "bind", err).WithContext("addr", addr.String())
		}
		return nil
	})
}

// LocalAddress returns the bound local address.
func (s *Socket) LocalAddress() (api.Address, error) {
	var local api.Address
	err := s.withFd("getsockname", func(fd int) error {
		a, err := sysGetsockname(fd)
		if err != nil {
			return api.NewError(api.ErrCodeConfiguration, "getsockname", err)
		}
		local = a
		return nil
	})
	return local, err
}

// SendTo issues exactly one non-blocking send of buf to addr and returns the
// number of bytes the kernel accepted. Short writes are not retried.
func (s *Socket) SendTo(buf []byte, addr api.Address) (int, error) {
	var n int
	err := s.withFd("sendto", func(fd int) error {
		var err error
		n, err = sysSendTo(fd, buf, addr, s.ipv6)
		if err != nil {
			n = 0
			s.stats.sendErrors.Add(1)
			s.recordError("sendto", err)
			return api.NewError(api.ErrCodeSend, "sendto", err).WithContext("to", addr.String())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.stats.datagramsSent.Add(1)
	s.stats.bytesSent.Add(uint64(n))
	return n, nil
}

// ReceiveDispatch performs one receive and hands the datagram to the sink.
//
// Called only by the manager's dispatch goroutine for a registered, readable
// socket, never concurrently with itself. Receive errors are dropped and do
// not touch LastError. Zero-length reads are ignored.
func (s *Socket) ReceiveDispatch() {
	fd := int(s.fd.Load())
	if fd == invalidFd {
		return
	}
	n, from, err := sysRecvFrom(fd, s.recvBuf[:])
	switch {
	case err != nil:
		s.stats.receiveErrors.Add(1)
	case n == 0:
		// orderly shutdown
	default:
		s.stats.datagramsReceived.Add(1)
		s.stats.bytesReceived.Add(uint64(n))
		b := s.binding.Load()
		if !s.wantsIncoming.Load() || b == nil {
			s.stats.datagramsDropped.Add(1)
			return
		}
		b.sink.HandleDatagram(b.ctx, s.recvBuf[:n], from)
	}
}

// Stats returns a snapshot of the traffic counters.
func (s *Socket) Stats() api.SocketStats {
	return api.SocketStats{
		DatagramsReceived: s.stats.datagramsReceived.Load(),
		BytesReceived:     s.stats.bytesReceived.Load(),
		DatagramsDropped:  s.stats.datagramsDropped.Load(),
		ReceiveErrors:     s.stats.receiveErrors.Load(),
		DatagramsSent:     s.stats.datagramsSent.Load(),
		BytesSent:         s.stats.bytesSent.Load(),
		SendErrors:        s.stats.sendErrors.Load(),
	}
}
