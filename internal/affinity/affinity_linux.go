//go:build linux

// Package affinity pins goroutines to CPU cores, best-effort. The
// caller locks the goroutine to its OS thread first; pinning failures
// are returned for logging and are never fatal.
package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Pin restricts the calling OS thread to the given CPU core. Call
// runtime.LockOSThread before Pin so the goroutine stays on the pinned
// thread.
func Pin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: pin to core %d: %w", core, err)
	}
	return nil
}
