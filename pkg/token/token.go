// Package token mints the correlation tokens that pair a catalog fetch with
// its eventual response.
//
// Every fetch attempt gets a fresh Token that is strictly greater than any
// token handed out before it. A response is only ever compared for equality
// against the token the browser is currently waiting for, so monotonicity is
// what guarantees an old reply can never masquerade as a new one.
package token

import (
	"strconv"
	"sync/atomic"
)

// Token is an opaque, strictly increasing fetch identifier.
// The zero value means "no token".
type Token uint64

// None is the zero token. Next never returns it.
const None Token = 0

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t == None
}

func (t Token) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Generator hands out tokens. The zero value is ready to use and starts at 1.
type Generator struct {
	last atomic.Uint64
}

// NewGenerator returns a generator whose first token is baseline+1.
func NewGenerator(baseline uint64) *Generator {
	g := &Generator{}
	g.last.Store(baseline)
	return g
}

// Next returns a token strictly greater than every token previously returned
// by g. Safe for concurrent use.
func (g *Generator) Next() Token {
	return Token(g.last.Add(1))
}

// Last returns the most recently issued token, or None.
func (g *Generator) Last() Token {
	return Token(g.last.Load())
}

var process Generator

// Next returns the next token from the process-wide generator.
func Next() Token {
	return process.Next()
}

// Default returns the process-wide generator.
func Default() *Generator {
	return &process
}
