// File: api/control.go
// Package api defines the Stats contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// StatsSource exposes runtime metrics as a flat snapshot.
type StatsSource interface {
	Stats() map[string]any
}
