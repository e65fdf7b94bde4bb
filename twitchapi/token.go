package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

// TokenSource fetches and caches a Twitch app access (client credentials) token.
// NOTE: This token CANNOT be used for IRC chat; chat requires a user (bot) OAuth token with chat:read/chat:edit scopes.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Twitch token endpoint.
	TokenURL   string
	HTTPClient *http.Client

	mu  sync.Mutex
	src oauth2.TokenSource
}

func (ts *TokenSource) source() (oauth2.TokenSource, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.src != nil {
		return ts.src, nil
	}
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return nil, errors.New("missing client id/secret for twitch app token")
	}
	cc := &clientcredentials.Config{
		ClientID:     ts.ClientID,
		ClientSecret: ts.ClientSecret,
		TokenURL:     twitch.Endpoint.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if ts.TokenURL != "" {
		cc.TokenURL = ts.TokenURL
	}
	// refreshes are not tied to any one caller's ctx
	base := context.Background()
	if ts.HTTPClient != nil {
		base = context.WithValue(base, oauth2.HTTPClient, ts.HTTPClient)
	}
	ts.src = oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(base), expiryDelta)
	return ts.src, nil
}

// Get returns a valid (fresh or cached) app access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	src, err := ts.source()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("twitch token request failed: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access_token in twitch response")
	}
	return tok.AccessToken, nil
}
