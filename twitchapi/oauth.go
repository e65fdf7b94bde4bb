package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// expiryDelta is how long before expiry a cached token is treated as stale.
const expiryDelta = 60 * time.Second

// ChatToken is a user access token usable for chat login.
type ChatToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

// RefreshChatToken exchanges the bot account's refresh token for a new chat
// access token. tokenURL may be empty to use Twitch's endpoint.
func RefreshChatToken(ctx context.Context, hc *http.Client, clientID, clientSecret, refreshToken, tokenURL string) (*ChatToken, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing clientID/clientSecret/refreshToken")
	}
	endpoint := twitch.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	conf := &oauth2.Config{ClientID: clientID, ClientSecret: clientSecret, Endpoint: endpoint}
	if hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	// An already expired token forces the refresh grant.
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}).Token()
	if err != nil {
		return nil, fmt.Errorf("twitch refresh failed: %w", err)
	}
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = ComputeExpiry(0)
	}
	out := &ChatToken{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: expiry}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}
