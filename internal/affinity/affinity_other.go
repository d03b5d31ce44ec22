//go:build !linux

package affinity

import "fmt"

// Pin is unsupported off Linux; callers treat the error as advisory.
func Pin(core int) error {
	return fmt.Errorf("affinity: core pinning not supported on this platform (core %d)", core)
}
