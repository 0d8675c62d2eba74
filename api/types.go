// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// MaxDatagramSize is the fixed receive buffer size. Longer datagrams are truncated.
const MaxDatagramSize = 2048

// TeardownState enumerates the stages of a socket's close handshake.
type TeardownState int

const (
	StateActive TeardownState = iota
	StateClosingRequested
	StateAwaitingManagerAck
	StateDeleted
	StateAcknowledged
)

func (s TeardownState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosingRequested:
		return "closing-requested"
	case StateAwaitingManagerAck:
		return "awaiting-manager-ack"
	case StateDeleted:
		return "deleted"
	case StateAcknowledged:
		return "acknowledged"
	default:
		return "unknown"
	}
}

// SocketStats is a point-in-time snapshot of per-socket traffic counters.
type SocketStats struct {
	DatagramsReceived uint64
	BytesReceived     uint64
	DatagramsDropped  uint64 // read but not delivered: no sink or not receiving
	ReceiveErrors     uint64
	DatagramsSent     uint64
	BytesSent         uint64
	SendErrors        uint64
}
