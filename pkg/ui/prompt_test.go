package ui

import (
	"testing"

	"github.com/vanderheijden86/databrowser/pkg/browser"
	"github.com/vanderheijden86/databrowser/pkg/filter"
)

func TestParseScopeInput(t *testing.T) {
	tests := []struct {
		in        string
		wantScope browser.Scope
		wantRest  string
	}{
		{"", browser.Scope{}, ""},
		{"   ", browser.Scope{}, ""},
		{"/A/B/C", browser.DatasetScope("/A/B/C"), ""},
		{" /A/B/C#1 ", browser.BlockScope("/A/B/C#1"), ""},
		{"/A/*/RAW", browser.DatasetScope("/A/*/RAW"), ""},
		{"block=/A/B/C#1 block_create_since=48", browser.BlockScope("/A/B/C#1"), "block_create_since=48"},
		{"dataset=/X/Y/Z block=/A/B/C#1", browser.DatasetScope("/X/Y/Z"), ""},
		{"dataset_create_since=9999", browser.Scope{}, "dataset_create_since=9999"},
	}
	for _, tt := range tests {
		scope, rest := ParseScopeInput(tt.in)
		if scope != tt.wantScope || rest != tt.wantRest {
			t.Errorf("ParseScopeInput(%q) = (%v, %q), want (%v, %q)", tt.in, scope, rest, tt.wantScope, tt.wantRest)
		}
	}
}

func TestValidateScopeName(t *testing.T) {
	for _, ok := range []string{"/A/B/C", " /A/B/C#1 "} {
		if err := validateScopeName(ok); err != nil {
			t.Errorf("validateScopeName(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "A/B/C"} {
		if err := validateScopeName(bad); err == nil {
			t.Errorf("validateScopeName(%q) accepted", bad)
		}
	}
}

func TestWindowOptions(t *testing.T) {
	opts := windowOptions()
	if len(opts) != len(filter.Choices) {
		t.Fatalf("windowOptions() has %d entries, want %d", len(opts), len(filter.Choices))
	}
	for i, c := range filter.Choices {
		if got := parseWindow(opts[i].Value); got != c.Window {
			t.Errorf("option %d round-trips to %d, want %d", i, got, c.Window)
		}
	}
	if got := parseWindow("junk"); got != 0 {
		t.Errorf("parseWindow(junk) = %d, want 0", got)
	}
	if got := parseWindow("-3"); got != 0 {
		t.Errorf("parseWindow(-3) = %d, want 0", got)
	}
}

func TestQuickViewKey(t *testing.T) {
	tests := []struct {
		in       string
		n        int
		save, ok bool
	}{
		{"1", 1, false, true},
		{"9", 9, false, true},
		{"alt+3", 3, true, true},
		{"0", 0, false, false},
		{"alt+x", 0, false, false},
		{"12", 0, false, false},
		{"q", 0, false, false},
	}
	for _, tt := range tests {
		n, save, ok := quickViewKey(tt.in)
		if n != tt.n || save != tt.save || ok != tt.ok {
			t.Errorf("quickViewKey(%q) = (%d, %v, %v), want (%d, %v, %v)", tt.in, n, save, ok, tt.n, tt.save, tt.ok)
		}
	}
}
