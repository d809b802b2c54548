package session

import (
	"sync"
	"testing"
)

func TestTokenSourceNextSupersedes(t *testing.T) {
	var ts TokenSource

	first := ts.Next()
	if !ts.Live(first) {
		t.Fatal("freshly issued token should be live")
	}

	second := ts.Next()
	if ts.Live(first) {
		t.Error("older token should be stale after Next")
	}
	if !ts.Live(second) {
		t.Error("newest token should be live")
	}
}

func TestTokenSourceConcurrentNext(t *testing.T) {
	var ts TokenSource
	var wg sync.WaitGroup

	const n = 64
	tokens := make([]Token, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = ts.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[Token]bool, n)
	live := 0
	for _, tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token %d", tok)
		}
		seen[tok] = true
		if ts.Live(tok) {
			live++
		}
	}
	if live != 1 {
		t.Errorf("expected exactly one live token, got %d", live)
	}
}
