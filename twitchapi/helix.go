// Package twitchapi contains minimal helpers to interact with the Twitch Helix
// API: video metadata lookup with an app access token, and refreshing the
// bot's chat token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.twitch.tv/helix"

// ErrVideoNotFound is returned when Helix knows no video with the given id.
var ErrVideoNotFound = errors.New("video not found")

// HelixClient provides the Helix calls the bot needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	// BaseURL overrides https://api.twitch.tv/helix.
	BaseURL string
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultBaseURL
}

// VideoMeta is the subset of a Helix video the bot reports.
type VideoMeta struct {
	ID, Title string
	Duration  time.Duration
	ViewCount int64
}

// GetVideo fetches one video by id.
func (hc *HelixClient) GetVideo(ctx context.Context, id string) (*VideoMeta, error) {
	if id == "" {
		return nil, fmt.Errorf("video id empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/videos", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("id", id)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrVideoNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("helix videos: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Duration  string `json:"duration"`
			ViewCount int64  `json:"view_count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, ErrVideoNotFound
	}
	v := body.Data[0]
	meta := &VideoMeta{ID: v.ID, Title: v.Title, ViewCount: v.ViewCount}
	// Helix durations look like "1h2m3s"
	if d, err := time.ParseDuration(v.Duration); err == nil {
		meta.Duration = d
	}
	return meta, nil
}
