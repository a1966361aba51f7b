package ui

import (
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

func TestFormatTimeRelAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Hour, "now"},
		{30 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{15 * 24 * time.Hour, "2w ago"},
		{90 * 24 * time.Hour, "3mo ago"},
	}
	for _, tt := range tests {
		if got := formatTimeRelAt(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("formatTimeRelAt(-%s) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := formatTimeRelAt(time.Time{}, now); got != "unknown" {
		t.Errorf("zero time = %q, want unknown", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 8, "this is…"},
		{"日本語のテキスト", 7, "日本語…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	name := "/Primary0/Processed-v1/RAW#0000abcd"
	got := truncateMiddle(name, 20)
	if w := runewidth.StringWidth(got); w != 20 {
		t.Fatalf("width = %d, want 20 (%q)", w, got)
	}
	if got[:5] != "/Prim" || got[len(got)-4:] != "abcd" {
		t.Errorf("truncateMiddle lost head or tail: %q", got)
	}
	if got := truncateMiddle(name, 100); got != name {
		t.Errorf("short enough input changed: %q", got)
	}
	if got := truncateMiddle(name, 5); runewidth.StringWidth(got) > 5 {
		t.Errorf("narrow truncateMiddle = %q", got)
	}
}
