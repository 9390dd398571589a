package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	wasEnabled, oldLogger := enabled, logger
	t.Cleanup(func() { enabled, logger = wasEnabled, oldLogger })
	var buf bytes.Buffer
	SetEnabled(true)
	SetOutput(&buf)
	return &buf
}

func TestLogWritesWhenEnabled(t *testing.T) {
	buf := capture(t)
	Log("page %d", 3)
	LogTiming("fetch", 5*time.Millisecond)
	LogIf(false, "hidden")
	LogIf(true, "shown")
	LogEnterExit("load")()

	out := buf.String()
	for _, want := range []string{"[SF_DEBUG]", "page 3", "fetch took 5ms", "shown", "-> load", "<- load"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("LogIf(false) should not write")
	}
}

func TestDisabledIsSilent(t *testing.T) {
	buf := capture(t)
	SetEnabled(false)
	Log("nothing")
	LogEnterExit("nothing")()
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
	if Enabled() {
		t.Error("Enabled should report false")
	}
}
