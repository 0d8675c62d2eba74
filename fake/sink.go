// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-udp/api"
)

// Datagram is one recorded sink invocation.
type Datagram struct {
	Ctx  any
	Data []byte
	From api.Address
}

// Sink records every datagram it is handed.
type Sink struct {
	mu  sync.Mutex
	got []Datagram
	ch  chan Datagram
}

// NewSink returns an empty recording sink.
func NewSink() *Sink {
	return &Sink{ch: make(chan Datagram, 64)}
}

// HandleDatagram implements api.Sink. Data is copied.
func (s *Sink) HandleDatagram(ctx any, buf []byte, from api.Address) {
	d := Datagram{Ctx: ctx, Data: append([]byte(nil), buf...), From: from}
	s.mu.Lock()
	s.got = append(s.got, d)
	s.mu.Unlock()
	select {
	case s.ch <- d:
	default:
	}
}

// Next waits up to timeout for the next datagram.
func (s *Sink) Next(timeout time.Duration) (Datagram, bool) {
	select {
	case d := <-s.ch:
		return d, true
	case <-time.After(timeout):
		return Datagram{}, false
	}
}

// Count returns the number of datagrams recorded so far.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}
