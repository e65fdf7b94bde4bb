package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/minilodon/telemetry"
	"github.com/onnwee/minilodon/video"
)

// spy toggles mirroring of the monitored room into the control room.
func (s *Set) spy(context.Context, string, []string) []string {
	if s.spying() {
		s.spyUntil = time.Time{}
		return []string{"Spy functie gestopt."}
	}
	s.spyUntil = s.opts.Now().Add(s.opts.SpyDuration)
	return []string{fmt.Sprintf("Room %s wordt %d minuten bespioneerd.", s.bot.MainRoom(), int(s.opts.SpyDuration.Minutes()))}
}

func (s *Set) spying() bool { return s.opts.Now().Before(s.spyUntil) }

func (s *Set) observeSpy(_ context.Context, nick, text string) []string {
	if s.spying() {
		s.bot.SendControl(fmt.Sprintf("<%s> %s", nick, text))
	}
	return nil
}

func (s *Set) observeVideo(ctx context.Context, _ string, text string) []string {
	if !video.IsLink(text) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.VideoTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "video", "describe", attribute.String("link", text))
	defer span.End()

	line, err := s.opts.Video.Describe(ctx, text)
	if err != nil {
		if !errors.Is(err, video.ErrUnsupported) {
			telemetry.RecordError(span, err)
			s.log.Info("video lookup failed", slog.String("link", text), slog.Any("err", err))
		}
		return nil
	}
	telemetry.SetSpanSuccess(span)
	return []string{line}
}
