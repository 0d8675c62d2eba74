// File: socket/doc.go
// Package socket
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking UDP socket driven by an external readiness dispatcher.
//
// A Socket is owned by the goroutine that created it. Inbound datagrams are
// read by the manager's dispatch goroutine through ReceiveDispatch and handed
// to the registered api.Sink. Teardown is a two-phase rendezvous between the
// owner (CloseBlocking) and the dispatcher (MarkReadyForDeletion): the handle
// is closed before the owner resumes, and the owner resumes before the
// dispatcher call returns, so the owner may drop the Socket as soon as
// CloseBlocking returns nil.
package socket
