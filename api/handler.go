// File: api/handler.go
// Package api defines the inbound datagram Sink contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Sink receives datagrams read by a socket's dispatch path.
//
// HandleDatagram runs synchronously on the manager's dispatch goroutine. buf
// is only valid for the duration of the call; copy it to retain it. ctx is the
// opaque token supplied at registration. The sink must not call CloseBlocking
// on the socket it is serving.
type Sink interface {
	HandleDatagram(ctx any, buf []byte, from Address)
}

// SinkFunc adapts an ordinary function to Sink.
type SinkFunc func(ctx any, buf []byte, from Address)

// HandleDatagram calls f(ctx, buf, from).
func (f SinkFunc) HandleDatagram(ctx any, buf []byte, from Address) { f(ctx, buf, from) }
