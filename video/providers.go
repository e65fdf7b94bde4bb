package video

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/onnwee/minilodon/twitchapi"
	"github.com/onnwee/minilodon/youtubeapi"
)

// YouTubeAPI is the part of youtubeapi.Service the provider uses.
type YouTubeAPI interface {
	GetVideo(ctx context.Context, id string) (*youtubeapi.VideoMeta, error)
}

// YouTube recognises youtube.com and youtu.be links.
type YouTube struct{ API YouTubeAPI }

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

func (YouTube) Name() string { return "Youtube" }

func (YouTube) Match(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/live/"):
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) >= 2 {
				id = parts[1]
			}
		}
	}
	return id, youtubeID.MatchString(id)
}

func (y YouTube) Fetch(ctx context.Context, id string) (Info, error) {
	v, err := y.API.GetVideo(ctx, id)
	if err != nil {
		return Info{}, err
	}
	info := Info{Provider: "Youtube", Title: v.Title, Duration: v.Duration, HasViews: v.HasViews}
	if v.ViewCount > math.MaxInt64 {
		info.Views = math.MaxInt64
	} else {
		info.Views = int64(v.ViewCount)
	}
	return info, nil
}

// TwitchAPI is the part of twitchapi.HelixClient the provider uses.
type TwitchAPI interface {
	GetVideo(ctx context.Context, id string) (*twitchapi.VideoMeta, error)
}

// Twitch recognises twitch.tv/videos/<id> links.
type Twitch struct{ API TwitchAPI }

var twitchID = regexp.MustCompile(`^[0-9]+$`)

func (Twitch) Name() string { return "Twitch" }

func (Twitch) Match(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "twitch.tv" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// /videos/<id> or /<channel>/video/<id>
	var id string
	switch {
	case len(parts) == 2 && parts[0] == "videos":
		id = parts[1]
	case len(parts) == 3 && parts[1] == "video":
		id = parts[2]
	}
	return id, twitchID.MatchString(id)
}

func (t Twitch) Fetch(ctx context.Context, id string) (Info, error) {
	v, err := t.API.GetVideo(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return Info{Provider: "Twitch", Title: v.Title, Duration: v.Duration, Views: v.ViewCount, HasViews: true}, nil
}
