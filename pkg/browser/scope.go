// Package browser coordinates catalog fetches for the data browser view.
//
// A Controller owns the view's scope, its filter windows, the current tree
// and the status text. Every fetch is tagged with a token from the
// Coordinator; replies carrying anything but the awaited token are stale
// and dropped, so replies may arrive in any order and more than once.
//
// The controller never performs I/O itself. Operations that need a fetch
// return a *Request which the caller issues asynchronously and whose
// outcome it feeds back through HandleResponse.
package browser

// ScopeKind discriminates the Scope variants.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeDataset
	ScopeBlock
)

// Scope selects what the browser shows: one dataset, one block, or nothing.
// Dataset and block are mutually exclusive.
type Scope struct {
	kind ScopeKind
	name string
}

// NoScope is the empty scope; no fetch is possible with it.
var NoScope = Scope{}

// DatasetScope scopes the view to the named dataset. An empty name gives
// NoScope.
func DatasetScope(name string) Scope {
	if name == "" {
		return NoScope
	}
	return Scope{kind: ScopeDataset, name: name}
}

// BlockScope scopes the view to the named block. An empty name gives NoScope.
func BlockScope(name string) Scope {
	if name == "" {
		return NoScope
	}
	return Scope{kind: ScopeBlock, name: name}
}

// ScopeFrom picks the scope from a dataset/block pair: a non-empty dataset
// wins, then a non-empty block, else NoScope.
func ScopeFrom(dataset, block string) Scope {
	if dataset != "" {
		return DatasetScope(dataset)
	}
	return BlockScope(block)
}

// Kind returns the variant.
func (s Scope) Kind() ScopeKind { return s.kind }

// Name returns the dataset or block name, or "" for NoScope.
func (s Scope) Name() string { return s.name }

// IsZero reports whether s is NoScope.
func (s Scope) IsZero() bool { return s.kind == ScopeNone }

// Dataset returns the dataset name, or "" if s is not a dataset scope.
func (s Scope) Dataset() string {
	if s.kind != ScopeDataset {
		return ""
	}
	return s.name
}

// Block returns the block name, or "" if s is not a block scope.
func (s Scope) Block() string {
	if s.kind != ScopeBlock {
		return ""
	}
	return s.name
}

// Key returns the query parameter name for the scope ("dataset" or
// "block"), or "" for NoScope.
func (s Scope) Key() string {
	switch s.kind {
	case ScopeDataset:
		return "dataset"
	case ScopeBlock:
		return "block"
	default:
		return ""
	}
}

// String renders the scope as "key=name", the form echoed in the status line.
func (s Scope) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Key() + "=" + s.name
}
