// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for the socket
// dispatcher.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed dispatcher configuration with defaults and validation
//   - A metrics registry with counters and snapshots
//   - Debug probe registration and state export
package control
