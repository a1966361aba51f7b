// Package filter holds the create-since windows applied to each level of the
// catalog hierarchy and their compact textual form.
//
// The textual form is a whitespace-separated list of key=value pairs, e.g.
//
//	dataset_create_since=9999 block_create_since=48
//
// Only the recognized keys (see RecognizedKeys) take part in Encode/Decode.
// file_create_since is modeled but not recognized: it can be set and queried
// with, but never round-trips through the state string.
package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Key names a create-since window. The string value is also the query
// parameter name understood by the data service.
type Key string

const (
	DatasetCreateSince Key = "dataset_create_since"
	BlockCreateSince   Key = "block_create_since"
	FileCreateSince    Key = "file_create_since"
)

// AllKeys lists every modeled key, dataset level first.
var AllKeys = []Key{DatasetCreateSince, BlockCreateSince, FileCreateSince}

// RecognizedKeys is the allow-list used by Encode and Decode, in encode order.
var RecognizedKeys = []Key{DatasetCreateSince, BlockCreateSince}

// IsRecognized reports whether k participates in state serialization.
func IsRecognized(k Key) bool {
	for _, r := range RecognizedKeys {
		if r == k {
			return true
		}
	}
	return false
}

// Label returns the short menu prefix for k.
func (k Key) Label() string {
	switch k {
	case DatasetCreateSince:
		return "Dataset Created"
	case BlockCreateSince:
		return "Block Created"
	case FileCreateSince:
		return "File Created"
	default:
		return string(k)
	}
}

// Window is a create-since window in hours. Zero means no filter at that
// level; Unbounded means "since the epoch".
type Window int

// Unbounded selects everything ever created.
const Unbounded Window = 9999

// IsSet reports whether the window filters anything (non-zero).
func (w Window) IsSet() bool {
	return w != 0
}

// Valid reports whether w is between 0 and Unbounded inclusive.
func (w Window) Valid() bool {
	return w >= 0 && w <= Unbounded
}

// String returns the menu label for w.
func (w Window) String() string {
	for _, c := range Choices {
		if c.Window == w {
			return c.Label
		}
	}
	return fmt.Sprintf("Last %d Hours", int(w))
}

// Choice is one entry of the create-since menu.
type Choice struct {
	Window Window
	Label  string
}

// Choices is the menu offered for every window, in display order.
var Choices = []Choice{
	{0, "Any"},
	{1, "Last Hour"},
	{3, "Last 3 Hours"},
	{6, "Last 6 Hours"},
	{12, "Last 12 Hours"},
	{24, "Last Day"},
	{48, "Last 2 Days"},
	{96, "Last 4 Days"},
	{168, "Last Week"},
	{336, "Last 2 weeks"},
	{672, "Last 4 Weeks"},
	{1342, "Last 8 Weeks"},
	{Unbounded, "Forever"},
}

// NextChoice returns the menu entry after w, wrapping around. Windows that
// are not on the menu advance to the first entry.
func NextChoice(w Window) Window {
	for i, c := range Choices {
		if c.Window == w {
			return Choices[(i+1)%len(Choices)].Window
		}
	}
	return Choices[0].Window
}

// PrevChoice returns the menu entry before w, wrapping around.
func PrevChoice(w Window) Window {
	for i, c := range Choices {
		if c.Window == w {
			return Choices[(i-1+len(Choices))%len(Choices)].Window
		}
	}
	return Choices[len(Choices)-1].Window
}

// State is the set of windows for all three levels.
// The zero value has every window unset.
type State struct {
	windows map[Key]Window
}

// Default returns the initial browsing windows: blocks created in the last
// day, no dataset or file restriction.
func Default() *State {
	s := New()
	s.Set(BlockCreateSince, 24)
	return s
}

// New returns a State with every window unset.
func New() *State {
	return &State{windows: make(map[Key]Window, len(AllKeys))}
}

// Get returns the window for k (zero if unset).
func (s *State) Get(k Key) Window {
	if s == nil || s.windows == nil {
		return 0
	}
	return s.windows[k]
}

// Set assigns the window for k. Setting zero clears it.
func (s *State) Set(k Key, w Window) {
	if s.windows == nil {
		s.windows = make(map[Key]Window, len(AllKeys))
	}
	if w == 0 {
		delete(s.windows, k)
		return
	}
	s.windows[k] = w
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := New()
	if s == nil {
		return c
	}
	for k, w := range s.windows {
		c.windows[k] = w
	}
	return c
}

// Equal reports whether s and o hold the same windows.
func (s *State) Equal(o *State) bool {
	for _, k := range AllKeys {
		if s.Get(k) != o.Get(k) {
			return false
		}
	}
	return true
}

// Encode renders the recognized, non-zero windows as "key=value" pairs joined
// by single spaces, in RecognizedKeys order.
func (s *State) Encode() string {
	parts := make([]string, 0, len(RecognizedKeys))
	for _, k := range RecognizedKeys {
		w := s.Get(k)
		if !w.IsSet() {
			continue
		}
		parts = append(parts, string(k)+"="+strconv.Itoa(int(w)))
	}
	return strings.Join(parts, " ")
}

// Decode applies a string produced by Encode. Recognized keys whose value
// differs from the current one are updated; unknown keys and values that are
// not integers in [0, Unbounded] are ignored. It returns true iff at least one window changed.
// An empty input changes nothing.
func (s *State) Decode(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	changed := 0
	for _, field := range strings.Fields(input) {
		k, v, ok := strings.Cut(field, "=")
		if !ok || !IsRecognized(Key(k)) {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || !Window(n).Valid() {
			continue
		}
		if Window(n) == s.Get(Key(k)) {
			continue
		}
		s.Set(Key(k), Window(n))
		changed++
	}
	return changed > 0
}
