// Package api
// Author: momentics
//
// Live introspection of sockets and the dispatcher.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState returns the output of every registered probe.
	DumpState() map[string]any

	// RegisterProbe adds a named probe evaluated on each DumpState.
	RegisterProbe(name string, fn func() any)
}
