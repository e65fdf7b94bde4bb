// Package youtubeapi wraps the YouTube Data API for the single purpose of
// looking up video metadata by id with an API key.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrVideoNotFound is returned when the API knows no video with the given id.
var ErrVideoNotFound = errors.New("video not found")

type Service struct {
	svc *yt.Service
}

// VideoMeta is the subset of a YouTube video the bot reports.
type VideoMeta struct {
	ID, Title string
	// Duration is zero for live streams and premieres.
	Duration  time.Duration
	ViewCount uint64
	HasViews  bool
}

// New builds a client authenticated by apiKey. Extra options are passed to
// the generated client (tests point it at a local endpoint).
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key empty")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return &Service{svc: svc}, nil
}

// GetVideo fetches snippet, content details and statistics for id.
func (s *Service) GetVideo(ctx context.Context, id string) (*VideoMeta, error) {
	if s == nil || s.svc == nil {
		return nil, fmt.Errorf("nil youtube service")
	}
	res, err := s.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list: %w", err)
	}
	if len(res.Items) == 0 || res.Items[0].Snippet == nil {
		return nil, ErrVideoNotFound
	}
	v := res.Items[0]
	meta := &VideoMeta{ID: v.Id, Title: v.Snippet.Title}
	if v.ContentDetails != nil {
		meta.Duration, _ = ParseDuration(v.ContentDetails.Duration)
	}
	if v.Statistics != nil {
		meta.ViewCount = v.Statistics.ViewCount
		meta.HasViews = true
	}
	return meta, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration reads the ISO 8601 durations the API returns, such as
// "PT1H2M3S" or "P1DT2H".
func ParseDuration(s string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}
