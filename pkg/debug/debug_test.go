package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogRespectsEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := Enabled()
	defer SetEnabled(prev)

	SetEnabled(false)
	Log("hidden %d", 1)
	LogTiming("hidden", time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	SetEnabled(true)
	Log("visible %d", 2)
	LogIf(false, "skipped")
	LogIf(true, "taken")
	LogEnterExit("work")()
	Dump("n", 3)

	out := buf.String()
	for _, want := range []string{"visible 2", "taken", "-> work", "<- work", "n: int = 3", prefix} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
	if strings.Contains(out, "skipped") {
		t.Errorf("LogIf(false) should not log, got %q", out)
	}
}
