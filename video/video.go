// Package video turns links posted in chat into a one-line description:
//
//	[Youtube] Some title [3:33] | 1,234,567 views
package video

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/onnwee/minilodon/telemetry"
)

// ErrUnsupported is returned for links no provider recognises.
var ErrUnsupported = errors.New("unsupported link")

// Info is what a provider knows about one video.
type Info struct {
	Provider string
	Title    string
	// Duration is omitted from the line when zero.
	Duration time.Duration
	Views    int64
	HasViews bool
}

// Provider resolves links for one site.
type Provider interface {
	Name() string
	// Match returns the video id for u, or false when u is not this site's.
	Match(u *url.URL) (string, bool)
	Fetch(ctx context.Context, id string) (Info, error)
}

// Resolver tries each provider in order.
type Resolver struct {
	providers []Provider
}

// NewResolver returns a Resolver over the given providers. Nil providers are
// skipped so optional ones can be passed unconditionally.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{}
	for _, p := range providers {
		if p != nil {
			r.providers = append(r.providers, p)
		}
	}
	return r
}

// Len returns the number of configured providers.
func (r *Resolver) Len() int { return len(r.providers) }

// IsLink reports whether text is a single http(s) URL.
func IsLink(text string) bool {
	u, err := url.Parse(strings.TrimSpace(text))
	return err == nil && strings.HasPrefix(u.Scheme, "http") && u.Host != ""
}

// Describe looks up the video behind raw and formats it.
func (r *Resolver) Describe(ctx context.Context, raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	for _, p := range r.providers {
		id, ok := p.Match(u)
		if !ok {
			continue
		}
		info, err := p.Fetch(ctx, id)
		if err != nil {
			telemetry.CountVideoLookup(p.Name(), "error")
			return "", fmt.Errorf("%s %s: %w", p.Name(), id, err)
		}
		telemetry.CountVideoLookup(p.Name(), "ok")
		if info.Provider == "" {
			info.Provider = p.Name()
		}
		line := Format(info)
		if line == "" {
			return "", fmt.Errorf("%s %s: unprintable title", p.Name(), id)
		}
		return line, nil
	}
	return "", ErrUnsupported
}

// Format renders info. Titles containing line breaks give "".
func Format(info Info) string {
	if info.Title == "" || strings.ContainsAny(info.Title, "\r\n") {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", info.Provider, info.Title)
	if info.Duration > 0 {
		fmt.Fprintf(&sb, " [%s]", Clock(info.Duration))
	}
	if info.HasViews {
		fmt.Fprintf(&sb, " | %s views", humanize.Comma(info.Views))
	}
	return sb.String()
}

// Clock renders d as m:ss, or h:mm:ss from one hour up.
func Clock(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
