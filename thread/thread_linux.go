//go:build linux

// Package thread elevates latency sensitive goroutines, such as the radio
// drivers' interrupt workers, to realtime OS scheduling.
package thread

import (
	"runtime"
	"syscall"
	"unsafe"
)

const FIFO = 1 // fifo scheduling policy
const RR = 2   // round-robin scheduling policy

type schedParam struct {
	Priority int
}

// Realtime locks the calling goroutine to its own kernel thread and elevates
// that thread's priority to realtime. It sets the round-robin scheduling
// policy and uses priority level 10 (somewhere in the lower middle of the
// range). Typically needs CAP_SYS_NICE; callers treat failure as best effort.
func Realtime() error {
	// First pin the goroutine to its own kernel thread, then raise that
	// thread's priority.
	runtime.LockOSThread()
	tid := syscall.Gettid()
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{10})))
	if res == 0 {
		return nil
	}
	return err
}
