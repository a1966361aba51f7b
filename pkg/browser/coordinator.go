package browser

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/filter"
	"github.com/vanderheijden86/databrowser/pkg/metrics"
	"github.com/vanderheijden86/databrowser/pkg/token"
)

var (
	// ErrNoScope is returned by Begin when neither a dataset nor a block is
	// selected.
	ErrNoScope = errors.New("no dataset or block selected")

	// ErrDuplicateFetch is returned by Begin when the freshly minted token
	// equals the one already awaited. It means the token source is broken.
	ErrDuplicateFetch = errors.New("fetch token already awaited")

	// ErrMalformedResponse wraps the reason an accepted reply could not be
	// used.
	ErrMalformedResponse = errors.New("malformed catalog response")
)

// Outcome is the result of matching a reply against the awaited token.
type Outcome int

const (
	// Rejected means the reply was stale and has been dropped.
	Rejected Outcome = iota
	// Accepted means the reply answered the awaited fetch.
	Accepted
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "rejected"
}

// TokenSource mints fetch tokens. *token.Generator implements it.
type TokenSource interface {
	Next() token.Token
}

// Coordinator tracks the one fetch whose reply is wanted. It is Idle when no
// token is awaited and Awaiting otherwise; Begin moves to Awaiting (and
// supersedes any earlier token), a matching Resolve or Fail moves back to
// Idle. Safe for concurrent use, though the controller drives it from a
// single goroutine.
type Coordinator struct {
	mu      sync.Mutex
	tokens  TokenSource
	awaited token.Token

	// FileFilter adds file_create_since to queries when its window is set.
	FileFilter bool
}

// NewCoordinator returns an idle coordinator drawing tokens from src, or
// from the process-wide generator when src is nil.
func NewCoordinator(src TokenSource) *Coordinator {
	if src == nil {
		src = token.Default()
	}
	return &Coordinator{tokens: src}
}

// Awaited returns the awaited token, or token.None when idle.
func (c *Coordinator) Awaited() token.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaited
}

// Awaiting reports whether a reply is being waited for.
func (c *Coordinator) Awaiting() bool {
	return !c.Awaited().IsZero()
}

// Query builds the parameters for scope with the coordinator's key set.
func (c *Coordinator) Query(scope Scope, filters *filter.State, now time.Time) Params {
	keys := filter.RecognizedKeys
	if c.FileFilter {
		keys = filter.AllKeys
	}
	return BuildQueryKeys(scope, filters, now, keys)
}

// Begin starts a fetch for scope. It mints a token, records it as awaited
// and returns the request to issue. With NoScope it returns ErrNoScope and
// mints nothing.
func (c *Coordinator) Begin(scope Scope, filters *filter.State, now time.Time) (*Request, error) {
	if scope.IsZero() {
		return nil, ErrNoScope
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tok := c.tokens.Next()
	if tok == c.awaited {
		log.Printf("warning: fetch token %s is already awaited, not refetching", tok)
		return nil, ErrDuplicateFetch
	}
	if !c.awaited.IsZero() {
		debug.Log("coordinator: token %s supersedes %s", tok, c.awaited)
	}
	c.awaited = tok
	metrics.FetchesIssued.Inc()

	return &Request{
		Token:  tok,
		API:    DataAPI,
		Params: c.Query(scope, filters, now),
		Scope:  scope,
	}, nil
}

// Resolve matches a reply against the awaited token. A mismatch returns
// Rejected and leaves the awaited token alone. A match clears it; the reply
// is then checked and an error wrapping ErrMalformedResponse is returned
// with Accepted if it is unusable.
func (c *Coordinator) Resolve(tok token.Token, resp *catalog.Response) (Outcome, error) {
	if !c.claim(tok) {
		return Rejected, nil
	}
	if resp == nil {
		metrics.FetchesMalformed.Inc()
		return Accepted, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	if err := resp.Validate(); err != nil {
		metrics.FetchesMalformed.Inc()
		return Accepted, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	metrics.FetchesAccepted.Inc()
	return Accepted, nil
}

// Fail reports a transport failure for tok. Stale tokens are rejected
// silently. For the awaited token the wait ends and err is returned.
func (c *Coordinator) Fail(tok token.Token, err error) (Outcome, error) {
	if !c.claim(tok) {
		return Rejected, nil
	}
	metrics.FetchesFailed.Inc()
	return Accepted, err
}

// Cancel stops waiting. Replies still in flight become stale.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaited = token.None
}

// claim clears the awaited token if it equals tok.
func (c *Coordinator) claim(tok token.Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.IsZero() || tok != c.awaited {
		debug.Log("coordinator: dropping reply for token %s (awaiting %s)", tok, c.awaited)
		metrics.FetchesRejected.Inc()
		return false
	}
	c.awaited = token.None
	return true
}
