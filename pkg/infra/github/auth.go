package github

import (
	"net/http"
	"sync"
)

// AuthContext holds the credential used for Git provider calls. The token is
// mutable so that a caller owning the OAuth flow can refresh it; the client
// reads the current value on every request instead of capturing it at
// construction time.
type AuthContext struct {
	mu    sync.RWMutex
	token string
	subs  []func(token string)
}

// NewAuthContext returns an AuthContext holding the given token.
func NewAuthContext(token string) *AuthContext {
	return &AuthContext{token: token}
}

// Token returns the current token.
func (a *AuthContext) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// SetToken replaces the token and notifies subscribers.
func (a *AuthContext) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	subs := make([]func(string), len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}

// Subscribe registers a callback invoked on every token refresh.
func (a *AuthContext) Subscribe(fn func(token string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}

// Transport returns a round-tripper injecting the current token into each
// request.
func (a *AuthContext) Transport() http.RoundTripper {
	return &authTransport{auth: a, base: http.DefaultTransport}
}

type authTransport struct {
	auth *AuthContext
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.auth.Token(); token != "" {
		clone := req.Clone(req.Context())
		clone.Header.Set("Authorization", "Bearer "+token)
		req = clone
	}
	return t.base.RoundTrip(req)
}
