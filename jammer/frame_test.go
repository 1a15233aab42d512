// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadHeader(t *testing.T) {
	tests := map[string]struct {
		frame []byte
		bufSz int
		n     int
		phr   byte
		err   error
	}{
		"normal":   {testFrame, 4, 4, 20, nil},
		"short":    {[]byte{2, 0xaa, 0xbb, 0xcc, 0xdd}, 4, 2, 2, nil},
		"empty":    {[]byte{0}, 4, 0, 0, nil},
		"max":      {[]byte{127, 1, 2, 3, 4, 5}, 4, 4, 127, nil},
		"too long": {[]byte{128, 1, 2, 3, 4}, 4, 0, 128, ErrFrameTooLong},
		"big buf":  {[]byte{5, 1, 2, 3, 4, 5, 6}, 200, 5, 5, nil},
	}
	for name, tt := range tests {
		f := newFakeRadio()
		f.frame = tt.frame
		buf := make([]byte, tt.bufSz)
		n, phr, err := ReadHeader(f, buf)
		if !errors.Is(err, tt.err) {
			t.Errorf("%s: expected error %v, got %v", name, tt.err, err)
		}
		if n != tt.n || phr != tt.phr {
			t.Errorf("%s: expected n=%d phr=%d, got n=%d phr=%d", name, tt.n, tt.phr, n, phr)
		}
		if tt.err == nil && !bytes.Equal(buf[:n], tt.frame[1:1+n]) {
			t.Errorf("%s: got % x", name, buf[:n])
		}
	}
}

func TestPayload(t *testing.T) {
	p := Payload()
	if len(p) != PayloadLen {
		t.Fatalf("expected %d bytes, got %d", PayloadLen, len(p))
	}
	if p[0] != 186 || p[PayloadLen-3] != 178 || p[PayloadLen-1] != 0 {
		t.Errorf("unexpected payload % x", p)
	}
	p[0] = 0
	if Payload()[0] != 186 {
		t.Errorf("Payload returned the backing array")
	}
}
