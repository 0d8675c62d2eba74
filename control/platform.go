// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Host-level debug probes.

package control

import (
	"runtime"
)

// RegisterPlatformProbes adds probes describing the host runtime.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS
	})
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
