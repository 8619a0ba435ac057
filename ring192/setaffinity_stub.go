// setaffinity_stub.go - CPU affinity no-op for platforms without
// sched_setaffinity(2): macOS, Windows, BSD variants, restricted runtimes.

//go:build !linux || tinygo

package ring192

// SetAffinity provides no-op CPU affinity for unsupported platforms.
// Identical signature to the Linux implementation; completely eliminated
// by compiler inlining.
//
//go:nosplit
//go:inline
func SetAffinity(cpu int) {
	// No-op implementation for platform compatibility
}
