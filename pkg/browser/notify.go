package browser

import "github.com/vanderheijden86/databrowser/pkg/token"

// EventKind names a notification published by the Controller.
type EventKind int

const (
	// NeedArguments: a fetch was wanted but no scope is set.
	NeedArguments EventKind = iota + 1
	// ParametersChanging: the scope changed and a fetch follows.
	ParametersChanging
	// FetchStarted: a request was issued; the tree has been cleared.
	FetchStarted
	// FetchCompleted: the awaited reply was accepted and the tree rebuilt.
	FetchCompleted
	// FetchFailed: the awaited reply was malformed or the fetch failed.
	FetchFailed
)

func (k EventKind) String() string {
	switch k {
	case NeedArguments:
		return "need_arguments"
	case ParametersChanging:
		return "parameters_changing"
	case FetchStarted:
		return "fetch_started"
	case FetchCompleted:
		return "fetch_completed"
	case FetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Event is one notification. Token is set for fetch events; Err for
// FetchFailed.
type Event struct {
	Kind  EventKind
	Scope Scope
	Token token.Token
	Err   error
}

// Notifier receives controller events. Notify is called synchronously from
// the goroutine driving the controller and must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

// ChannelNotifier forwards events to a buffered channel, dropping them when
// the buffer is full.
type ChannelNotifier struct {
	C chan Event
}

// NewChannelNotifier returns a ChannelNotifier with the given buffer size.
func NewChannelNotifier(size int) *ChannelNotifier {
	return &ChannelNotifier{C: make(chan Event, size)}
}

// Notify implements Notifier.
func (n *ChannelNotifier) Notify(e Event) {
	select {
	case n.C <- e:
	default:
	}
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}

// MultiNotifier fans events out to every non-nil notifier in order.
func MultiNotifier(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
