package fitbit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/stacklok/fitness-sync-server/internal/httpclient"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=connector.go ClientFactory

// ErrNoCredentials is returned when a user has no upstream tokens
var ErrNoCredentials = errors.New("user has no upstream credentials")

// Connector creates a user's Client on first use and returns the same client,
// or the same error, afterwards
type Connector struct {
	once    sync.Once
	connect func() (Client, error)
	client  Client
	err     error
}

// NewConnector returns a Connector that calls connect at most once
func NewConnector(connect func() (Client, error)) *Connector {
	return &Connector{connect: connect}
}

// Client returns the connected client
func (c *Connector) Client() (Client, error) {
	c.once.Do(func() {
		c.client, c.err = c.connect()
	})
	return c.client, c.err
}

// ClientFactory hands out per-user connectors
type ClientFactory interface {
	Connector(ctx context.Context, user *state.User) *Connector
}

// OAuthClientFactory builds clients that authenticate with the user's OAuth2
// tokens and persist every refreshed token
type OAuthClientFactory struct {
	baseURL string
	oauth   *oauth2.Config
	tokens  TokenStore
	timeout time.Duration
}

// NewOAuthClientFactory creates a factory for the API at baseURL
func NewOAuthClientFactory(baseURL string, oauth *oauth2.Config, tokens TokenStore, timeout time.Duration) *OAuthClientFactory {
	return &OAuthClientFactory{
		baseURL: baseURL,
		oauth:   oauth,
		tokens:  tokens,
		timeout: timeout,
	}
}

// NewOAuthConfig returns the OAuth2 configuration for refreshing user tokens.
// Fitbit expects client credentials in the Authorization header.
func NewOAuthConfig(clientID, clientSecret, tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Connector implements ClientFactory
func (f *OAuthClientFactory) Connector(ctx context.Context, user *state.User) *Connector {
	userID := user.ID
	initial := user.Token()
	hasCredentials := user.HasCredentials()

	return NewConnector(func() (Client, error) {
		if !hasCredentials {
			return nil, ErrNoCredentials
		}
		httpCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: f.timeout})
		source := NewPersistingTokenSource(ctx, userID, f.oauth.TokenSource(httpCtx, initial), f.tokens, initial)
		hc := oauth2.NewClient(httpCtx, source)
		hc.Timeout = f.timeout
		return NewClient(f.baseURL, httpclient.NewClient(hc)), nil
	})
}
