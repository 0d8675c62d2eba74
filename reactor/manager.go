// File: reactor/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Manager implements api.SocketManager on top of an EventReactor. A single
// dispatch goroutine polls, calls ReceiveDispatch for ready sockets and then
// completes pending teardowns, so MarkReadyForDeletion never overlaps a
// dispatch of the same socket.

package reactor

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"go.uber.org/zap"
)

var (
	_ api.SocketManager = (*Manager)(nil)
	_ api.Debug         = (*Manager)(nil)
	_ api.StatsSource   = (*Manager)(nil)
)

// removal is a socket awaiting MarkReadyForDeletion.
type removal struct {
	fd int
	s  api.ManagedSocket
}

// Manager polls registered sockets from one dispatch goroutine.
type Manager struct {
	cfg     *control.Config
	reactor EventReactor
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	mu       sync.Mutex
	sockets  map[int]api.ManagedSocket
	pending  *queue.Queue // of removal, FIFO
	removing map[api.ManagedSocket]struct{}
	started  bool
	stopped  bool

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// NewManager creates a manager; a nil cfg selects control.DefaultConfig.
// Call Start to begin dispatching.
func NewManager(cfg *control.Config) (*Manager, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := NewReactor(cfg.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("socket manager: %w", err)
	}
	m := &Manager{
		cfg:      cfg,
		reactor:  r,
		metrics:  control.NewMetricsRegistry(),
		probes:   control.NewDebugProbes(),
		sockets:  make(map[int]api.ManagedSocket),
		pending:  queue.New(),
		removing: make(map[api.ManagedSocket]struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.EnableDebug {
		control.RegisterPlatformProbes(m.probes)
		m.probes.RegisterProbe("reactor.sockets", func() any {
			m.mu.Lock()
			defer m.mu.Unlock()
			return len(m.sockets)
		})
		m.probes.RegisterProbe("reactor.pending_deletions", func() any {
			m.mu.Lock()
			defer m.mu.Unlock()
			return m.pending.Length()
		})
	}
	return m, nil
}

// Start launches the dispatch goroutine. Subsequent calls do nothing.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	go m.run()
	Logger().Debug("socket manager started", zap.Int("max_events", m.cfg.MaxEvents))
}

// Stop terminates dispatching, completes every pending teardown and releases
// the poller. Sockets still registered keep their handles; their owners
// release them with Close.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		started := m.started
		left := len(m.sockets)
		m.mu.Unlock()

		if started {
			close(m.quit)
			if err := m.reactor.Wake(); err != nil {
				Logger().Warn("wake on stop failed", zap.Error(err))
			}
			<-m.done
		}
		m.flushPending()
		if left > 0 {
			Logger().Warn("socket manager stopped with registered sockets", zap.Int("count", left))
		}
		m.stopErr = m.reactor.Close()
	})
	return m.stopErr
}

// AddSocket implements api.SocketManager.
func (m *Manager) AddSocket(s api.ManagedSocket) bool {
	fd := s.Fd()
	if fd < 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	if _, busy := m.removing[s]; busy {
		return false
	}
	if _, dup := m.sockets[fd]; dup {
		return false
	}
	if err := m.reactor.Register(fd); err != nil {
		Logger().Error("socket registration failed", zap.Int("fd", fd), zap.Error(err))
		return false
	}
	m.sockets[fd] = s
	m.setGauge("reactor.registered", len(m.sockets))
	return true
}

// RemoveSocket implements api.SocketManager. The socket stops being
// dispatched at once; MarkReadyForDeletion follows on the dispatch goroutine.
func (m *Manager) RemoveSocket(s api.ManagedSocket) bool {
	fd := s.Fd()
	m.mu.Lock()
	if cur, ok := m.sockets[fd]; m.stopped || !ok || cur != s {
		m.mu.Unlock()
		return false
	}
	delete(m.sockets, fd)
	if err := m.reactor.Unregister(fd); err != nil {
		// the table entry is gone, so the fd can no longer be dispatched
		Logger().Warn("socket unregister failed", zap.Int("fd", fd), zap.Error(err))
	}
	m.pending.Add(removal{fd: fd, s: s})
	m.removing[s] = struct{}{}
	m.setGauge("reactor.registered", len(m.sockets))
	m.count("reactor.removals")
	m.mu.Unlock()

	if err := m.reactor.Wake(); err != nil {
		Logger().Warn("dispatcher wake failed", zap.Error(err))
	}
	return true
}

func (m *Manager) run() {
	defer close(m.done)
	defer func() {
		// the loop is gone: refuse new work and release anyone waiting
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		m.flushPending()
	}()

	events := make([]Event, m.cfg.MaxEvents)
	timeout := m.cfg.PollTimeoutMillis()
	for {
		select {
		case <-m.quit:
			return
		default:
		}
		n, err := m.reactor.Wait(events, timeout)
		if err != nil {
			m.count("reactor.poll_errors")
			Logger().Error("readiness wait failed, dispatcher exiting", zap.Error(err))
			return
		}
		for i := 0; i < n; i++ {
			m.dispatch(events[i])
		}
		m.flushPending()
	}
}

func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	s := m.sockets[ev.Fd]
	m.mu.Unlock()
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.count("reactor.dispatch_panics")
			Logger().Error("panic in socket dispatch", zap.Int("fd", ev.Fd), zap.Any("panic", r))
		}
	}()
	s.ReceiveDispatch()
	m.count("reactor.dispatches")
}

// flushPending calls MarkReadyForDeletion once per removal, in removal order.
// Each call blocks until that socket's owner has acknowledged.
func (m *Manager) flushPending() {
	for {
		m.mu.Lock()
		if m.pending.Length() == 0 {
			m.mu.Unlock()
			return
		}
		rm := m.pending.Remove().(removal)
		m.mu.Unlock()

		rm.s.MarkReadyForDeletion()
		Logger().Debug("socket released", zap.Int("fd", rm.fd))

		m.mu.Lock()
		delete(m.removing, rm.s)
		m.count("reactor.deletions")
		m.mu.Unlock()
	}
}

func (m *Manager) count(key string) {
	if m.cfg.EnableMetrics {
		m.metrics.Add(key, 1)
	}
}

func (m *Manager) setGauge(key string, v int) {
	if m.cfg.EnableMetrics {
		m.metrics.Set(key, v)
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (m *Manager) Stats() map[string]any {
	return m.metrics.GetSnapshot()
}

// DumpState evaluates the registered debug probes.
func (m *Manager) DumpState() map[string]any {
	return m.probes.DumpState()
}

// RegisterProbe adds a caller-defined debug probe.
func (m *Manager) RegisterProbe(name string, fn func() any) {
	m.probes.RegisterProbe(name, fn)
}
