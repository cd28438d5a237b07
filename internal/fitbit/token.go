package fitbit

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// TokenStore persists refreshed tokens. state.UserStore satisfies it.
type TokenStore interface {
	UpdateTokens(ctx context.Context, id string, token *oauth2.Token) error
}

// persistingTokenSource stores every token the wrapped source hands out that
// differs from the last one stored
type persistingTokenSource struct {
	ctx    context.Context
	userID string
	base   oauth2.TokenSource
	store  TokenStore

	mu   sync.Mutex
	last string
}

// NewPersistingTokenSource wraps base so refreshed tokens are written back to
// the user's record. initial is the token already stored, if any.
func NewPersistingTokenSource(
	ctx context.Context,
	userID string,
	base oauth2.TokenSource,
	store TokenStore,
	initial *oauth2.Token,
) oauth2.TokenSource {
	p := &persistingTokenSource{
		ctx:    ctx,
		userID: userID,
		base:   base,
		store:  store,
	}
	if initial != nil {
		p.last = initial.AccessToken
	}
	return p
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}

	// A failed write keeps the new token in memory for this run only
	if err := p.store.UpdateTokens(p.ctx, p.userID, tok); err != nil {
		slog.Warn("Failed to persist refreshed token",
			"user", p.userID,
			"error", err)
		return tok, nil
	}
	p.last = tok.AccessToken
	slog.Debug("Persisted refreshed token",
		"user", p.userID,
		"expiry", tok.Expiry)
	return tok, nil
}
