package session

import "sync/atomic"

// Token identifies one user-initiated stream operation. A wait loop
// captures the token it was started with and must abandon all further side
// effects once a newer operation has taken a fresh one.
type Token uint64

// TokenSource is a monotonically increasing operation counter. Starting a
// new operation implicitly cancels every older one: stale waiters notice on
// their next Live check, they are never interrupted pre-emptively.
type TokenSource struct {
	counter atomic.Uint64
}

// Next begins a new operation and returns its token.
func (s *TokenSource) Next() Token {
	return Token(s.counter.Add(1))
}

// Live reports whether t still identifies the newest operation.
func (s *TokenSource) Live(t Token) bool {
	return uint64(t) == s.counter.Load()
}
