// setaffinity_linux.go - Linux CPU affinity via sched_setaffinity(2)

//go:build linux && !tinygo

package ring192

import (
	"syscall"
	"unsafe"
)

// Pre-computed CPU masks for cores 0-63
var cpuMasks = func() (m [64][1]uintptr) {
	for i := range m {
		m[i][0] = 1 << uint(i)
	}
	return
}()

// SetAffinity pins the current thread to the specified CPU core.
// Out-of-range indices are ignored.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func SetAffinity(cpu int) {
	// Validate CPU index
	if cpu < 0 || cpu >= len(cpuMasks) {
		return
	}

	// Get pre-computed mask
	mask := &cpuMasks[cpu]

	// Direct syscall for minimum overhead
	_, _, _ = syscall.RawSyscall(
		syscall.SYS_SCHED_SETAFFINITY,
		0,                               // Current thread
		uintptr(unsafe.Sizeof(mask[0])), // Mask size
		uintptr(unsafe.Pointer(mask)),   // Mask pointer
	)
}
