// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"errors"
	"fmt"
)

// State is the jammer's lifecycle state.
type State uint8

const (
	Uninitialized State = iota
	Idle                // transceiver in TRX_OFF
	Listening           // transceiver in RX_ON, waiting for a frame start
	Jamming             // transceiver in BUSY_TX sending the jamming frame
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Jamming:
		return "jamming"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// IEEE 802.15.4 2.4GHz channels.
const (
	MinChannel = 11
	MaxChannel = 26
)

var (
	// ErrState is returned when an operation is invoked in the wrong jammer state.
	ErrState = errors.New("jammer: operation not allowed in current state")
	// ErrChannel is returned for channels outside MinChannel..MaxChannel.
	ErrChannel = errors.New("jammer: channel out of range")
	// ErrVerify is returned when the transceiver does not read back what was written.
	ErrVerify = errors.New("jammer: transceiver verification failed")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("jammer: timeout")
	// ErrFrameTooLong is returned when the transceiver reports an impossible frame length.
	ErrFrameTooLong = errors.New("jammer: frame length exceeds maximum frame size")
)
