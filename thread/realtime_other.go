// Copyright 2016 by Thorsten von Eicken, see LICENSE file

//go:build !linux

package thread

import "runtime"

// Realtime locks the calling goroutine to its own kernel thread, raising its priority is not
// supported on this platform.
func Realtime(priority int) error {
	runtime.LockOSThread()
	return ErrUnsupported
}
