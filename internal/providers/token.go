package providers

import (
	"context"
	"sync"
	"time"
)

// refreshBuffer: re-authenticate when the cached token is this close to
// expiry. Proactive refresh, not reactive-on-401.
const refreshBuffer = 5 * time.Minute

type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) Usable(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-refreshBuffer))
}

// TokenSource caches one bearer token per gateway instance. fetch is the
// provider's credential-exchange call; it is invoked under the lock, so a
// burst of concurrent requests triggers at most one refresh.
type TokenSource struct {
	mu    sync.Mutex
	tok   Token
	fetch func(ctx context.Context) (Token, *Failure)
}

func NewTokenSource(fetch func(ctx context.Context) (Token, *Failure)) *TokenSource {
	return &TokenSource{fetch: fetch}
}

func (s *TokenSource) Get(ctx context.Context) (string, *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.Usable(time.Now()) {
		return s.tok.Value, nil
	}

	tok, fail := s.fetch(ctx)
	if fail != nil {
		return "", fail
	}
	s.tok = tok
	return tok.Value, nil
}

// Invalidate drops the cached token so the next Get re-authenticates.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.tok = Token{}
	s.mu.Unlock()
}
