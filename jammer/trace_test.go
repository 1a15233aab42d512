// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestTrace(t *testing.T) {
	tr := newTrace(3)
	t0 := time.Now()
	for i := 0; i < 5; i++ {
		tr.pushAt(t0.Add(time.Duration(i)*time.Millisecond), fmt.Sprintf("ev%d", i))
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", tr.Len())
	}
	var buf bytes.Buffer
	tr.Dump(&buf)
	want := "0.000000s: ev2\n0.001000s: ev3\n0.002000s: ev4\n"
	if buf.String() != want {
		t.Errorf("expected:\n%sgot:\n%s", want, buf.String())
	}
	if tr.Len() != 0 {
		t.Errorf("Dump did not empty the trace")
	}
	buf.Reset()
	tr.Dump(&buf)
	if !strings.Contains(buf.String(), "No events") {
		t.Errorf("unexpected dump of empty trace: %q", buf.String())
	}
}

func TestTraceDisabled(t *testing.T) {
	tr := newTrace(0)
	tr.push("nothing")
	if tr.Len() != 0 {
		t.Errorf("disabled trace recorded events")
	}
	var buf bytes.Buffer
	tr.Dump(&buf)
	if !strings.Contains(buf.String(), "disabled") {
		t.Errorf("unexpected dump: %q", buf.String())
	}
}
