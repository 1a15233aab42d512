// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"fmt"

	"github.com/tve/rzjammer/at86rf230"
)

// HeaderLen is the number of bytes captured from the start of each inbound frame.
const HeaderLen = 4

// ReadHeader reads the start of the frame currently being received into buf. It returns
// the number of bytes copied and the frame length (PHR) reported by the transceiver. At most
// min(len(buf), PHR) bytes are copied, frames announcing more than MaxFrameSize bytes are
// rejected with ErrFrameTooLong.
func ReadHeader(bus at86rf230.Bus, buf []byte) (int, byte, error) {
	if len(buf) > at86rf230.MaxFrameSize {
		buf = buf[:at86rf230.MaxFrameSize]
	}
	raw := bus.ReadFrame(len(buf))
	if len(raw) == 0 {
		return 0, 0, fmt.Errorf("jammer: empty frame buffer read")
	}
	phr := raw[0]
	if phr > at86rf230.MaxFrameSize {
		return 0, phr, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, phr)
	}
	n := min(len(buf), int(phr), len(raw)-1)
	return copy(buf, raw[1:1+n]), phr, nil
}

// PayloadLen is the length of the jamming frame.
const PayloadLen = 127

// The jamming frame has to fit the transceiver's frame buffer.
var _ [at86rf230.MaxFrameSize - PayloadLen]struct{}

// payload is random data, the last two bytes are overwritten by the auto-generated FCS.
var payload = [PayloadLen]byte{
	186, 38, 120, 91, 206, 116, 184, 22, 42, 239, 243, 204, 139, 78,
	83, 10, 226, 215, 183, 60, 86, 76, 181, 102, 219, 30, 87, 238,
	230, 244, 67, 26, 6, 223, 205, 159, 134, 62, 138, 121, 58, 4, 9,
	124, 31, 187, 18, 160, 119, 155, 64, 252, 0, 173, 49, 111, 154,
	166, 158, 21, 13, 108, 68, 112, 53, 240, 100, 214, 126, 72, 61,
	80, 98, 47, 198, 48, 231, 96, 248, 220, 92, 95, 8, 195, 185, 19,
	168, 190, 233, 122, 129, 101, 188, 210, 46, 85, 229, 144, 247,
	167, 123, 194, 193, 234, 74, 174, 147, 242, 255, 179, 197, 103,
	57, 152, 73, 5, 44, 63, 56, 141, 211, 202, 45, 224, 178, 0, 0,
}

// Payload returns a copy of the jamming frame.
func Payload() []byte {
	p := payload
	return p[:]
}
