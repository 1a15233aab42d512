// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Package thread adjusts the scheduling of the calling goroutine's kernel thread. The
// transceiver's interrupt goroutine uses it to get interrupt-like latency out of a Linux host.
package thread

import "errors"

// Scheduling policies.
const (
	FIFO = 1 // fifo scheduling policy
	RR   = 2 // round-robin scheduling policy
)

// DefaultPriority is somewhere in the lower middle of the realtime range.
const DefaultPriority = 10

// ErrUnsupported is returned on platforms without realtime scheduling support.
var ErrUnsupported = errors.New("thread: realtime scheduling not supported")

type schedParam struct {
	Priority int
}
