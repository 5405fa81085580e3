package ebay

import (
	"context"
	"sync"
	"time"
)

// TokenSource yields a valid OAuth access token for Browse API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type fetchFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// cachedTokenSource caches a client-credentials token until shortly before it
// expires. The slack window forces a refresh before the marketplace would
// reject the token mid-request.
type cachedTokenSource struct {
	mu    sync.Mutex
	fetch fetchFunc
	slack time.Duration
	now   func() time.Time

	token  string
	expiry time.Time
}

func newCachedTokenSource(fetch fetchFunc, slack time.Duration) *cachedTokenSource {
	if slack <= 0 {
		slack = 30 * time.Second
	}
	return &cachedTokenSource{
		fetch: fetch,
		slack: slack,
		now:   time.Now,
	}
}

func (s *cachedTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiry.Add(-s.slack)) {
		return s.token, nil
	}

	token, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expiry = s.now().Add(expiresIn)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *cachedTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}
