//go:build !linux

package thread

import (
	"errors"
	"runtime"
)

// Realtime pins the calling goroutine to its own kernel thread. Elevating the
// thread priority is only implemented on Linux; elsewhere the pin still helps
// and the priority request reports an error the caller may ignore.
func Realtime() error {
	runtime.LockOSThread()
	return errors.New("thread: realtime priority not supported on this platform")
}
