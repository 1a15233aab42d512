// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package thread

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"
)

// Realtime locks the calling goroutine to its own kernel thread and elevates that thread to
// the round-robin realtime policy at the given priority (1..99). The goroutine stays locked
// to the thread even if raising the priority fails, typically for lack of CAP_SYS_NICE.
func Realtime(priority int) error {
	if priority < 1 || priority > 99 {
		return fmt.Errorf("thread: invalid realtime priority %d", priority)
	}
	runtime.LockOSThread()
	tid := syscall.Gettid()
	res, _, errno := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{priority})))
	if res != 0 {
		return fmt.Errorf("thread: sched_setscheduler: %w", errno)
	}
	return nil
}
