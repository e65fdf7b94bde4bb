// Package commands holds the bot's chat commands: action management and
// moderation helpers for the control room, and the public lookups, list and
// dice commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/onnwee/minilodon/actions"
	"github.com/onnwee/minilodon/chat"
	"github.com/onnwee/minilodon/telemetry"
)

// Bot is the session surface commands act on. *chat.Session implements it.
type Bot interface {
	Commands() *chat.Commands
	ControlCommands() *chat.Commands
	Observe(o chat.Observer)
	MainRoom() string
	Send(lines ...string)
	SendControl(lines ...string)
	SendPrivate(nick string, lines ...string)
	JoinRoom(room string)
	PartRoom(room string)
	IdleReport() []string
}

// Describer turns a posted link into a one-line description.
type Describer interface {
	Describe(ctx context.Context, link string) (string, error)
}

// Options tunes a Set. Zero values get defaults.
type Options struct {
	// Video, when set, answers video links posted in the monitored room.
	Video        Describer
	VideoTimeout time.Duration
	SpyDuration  time.Duration
	Now          func() time.Time
	// Roll returns a number in [0, n).
	Roll func(n int) int
}

// Set is the installed command set. Its handlers run on the session
// goroutine and share no state with other goroutines.
type Set struct {
	bot     Bot
	store   actions.Store
	opts    Options
	catalog actions.Catalog
	// lookup commands currently registered, by category
	lookups  map[string]bool
	spyUntil time.Time
	log      *slog.Logger
}

// New returns a command set over bot and store. Nothing is registered until
// Install.
func New(bot Bot, store actions.Store, opts Options) *Set {
	if opts.VideoTimeout <= 0 {
		opts.VideoTimeout = 5 * time.Second
	}
	if opts.SpyDuration <= 0 {
		opts.SpyDuration = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Roll == nil {
		opts.Roll = rand.IntN
	}
	return &Set{
		bot:     bot,
		store:   store,
		opts:    opts,
		catalog: actions.Catalog{},
		lookups: make(map[string]bool),
		log:     slog.Default().With(slog.String("component", "commands")),
	}
}

func (s *Set) builtins() map[string]chat.Handler {
	return map[string]chat.Handler{
		"list": s.list,
		"roll": s.roll,
	}
}

func (s *Set) controls() map[string]chat.Handler {
	return map[string]chat.Handler{
		"update":   s.update,
		"updateme": s.updateme,
		"delete":   s.delete,
		"say":      s.say,
		"join":     s.join,
		"part":     s.part,
		"idle":     s.idle,
		"spy":      s.spy,
	}
}

// reserved reports whether name is a fixed command in either table.
func (s *Set) reserved(name string) bool {
	_, pub := s.builtins()[name]
	_, ctl := s.controls()[name]
	return pub || ctl
}

// Install registers every command and observer and loads the action catalog.
func (s *Set) Install(ctx context.Context) error {
	for name, h := range s.builtins() {
		s.bot.Commands().Register(name, h)
	}
	for name, h := range s.controls() {
		s.bot.ControlCommands().Register(name, h)
	}
	s.bot.Observe(s.observeSpy)
	if s.opts.Video != nil {
		s.bot.Observe(s.observeVideo)
	}
	return s.Reload(ctx)
}

// Reload reads the catalog and registers one lookup command per category,
// dropping commands for categories that no longer exist.
func (s *Set) Reload(ctx context.Context) error {
	catalog, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	s.catalog = catalog
	table := s.bot.Commands()
	for category := range s.lookups {
		if _, ok := catalog[category]; !ok {
			table.Remove(category)
			delete(s.lookups, category)
		}
	}
	for _, category := range catalog.Categories() {
		if s.reserved(category) {
			s.log.Warn("action category shadows a command, skipping", slog.String("category", category))
			continue
		}
		if !s.lookups[category] {
			table.Register(category, lookup{category: category, set: s}.handle)
			s.lookups[category] = true
		}
	}
	s.log.Debug("actions loaded", slog.Int("categories", len(catalog)))
	return nil
}

// lookup answers !<category> <key> [victim].
type lookup struct {
	category string
	set      *Set
}

func (l lookup) handle(_ context.Context, nick string, args []string) []string {
	if len(args) < 2 {
		return nil
	}
	key := strings.ToLower(args[1])
	victim := nick
	if len(args) > 2 {
		victim = args[2]
	}
	tmpl, ok := l.set.catalog[l.category][key]
	if !ok {
		if l.set.bot.Commands().Has(key) {
			return nil
		}
		return []string{fmt.Sprintf("Kon %s niet vinden in %s.", key, l.category)}
	}
	out, err := actions.Render(tmpl, victim, nick)
	if err != nil {
		l.set.log.Error("stored action does not render", slog.String("category", l.category), slog.String("key", key), slog.Any("err", err))
		return nil
	}
	return []string{out}
}

func (s *Set) update(ctx context.Context, _ string, args []string) []string {
	if len(args) < 4 {
		return []string{"Usage: !update <category> <key> <msg>"}
	}
	category, key := strings.ToLower(args[1]), strings.ToLower(args[2])
	msg := strings.Join(args[3:], " ")

	var out []string
	if len(msg) > chat.ChannelLineLimit {
		out = append(out, "Warning: Entry too long, message will be wrapped.")
	}
	if err := actions.Validate(msg); err != nil {
		var fe *actions.FieldError
		if errors.As(err, &fe) {
			return append(out, fmt.Sprintf("Failed to parse message on '%s'", fe.Name))
		}
		return append(out, "Failed to parse message: "+err.Error())
	}
	if err := s.store.Put(ctx, category, key, msg); err != nil {
		s.log.Error("saving action", slog.String("category", category), slog.String("key", key), slog.Any("err", err))
		return append(out, fmt.Sprintf("Failed to save %s.", key))
	}
	telemetry.CountActionUpdate()
	if err := s.Reload(ctx); err != nil {
		s.log.Error("reloading actions", slog.Any("err", err))
	}
	return append(out, fmt.Sprintf("%s added to %s.", key, category))
}

func (s *Set) updateme(ctx context.Context, nick string, args []string) []string {
	if len(args) < 4 {
		return []string{"Usage: !updateme <category> <key> <msg>"}
	}
	withMe := append(append(append([]string{}, args[:3]...), "/me"), args[3:]...)
	return s.update(ctx, nick, withMe)
}

func (s *Set) delete(ctx context.Context, _ string, args []string) []string {
	if len(args) != 3 {
		return []string{"Usage: !delete <category> <key>"}
	}
	category, key := strings.ToLower(args[1]), strings.ToLower(args[2])
	err := s.store.Delete(ctx, category, key)
	switch {
	case errors.Is(err, actions.ErrCategoryNotFound):
		return []string{fmt.Sprintf("Category %s not found!", category)}
	case errors.Is(err, actions.ErrKeyNotFound):
		return []string{fmt.Sprintf("Key %s not found in %s", key, category)}
	case err != nil:
		s.log.Error("deleting action", slog.String("category", category), slog.String("key", key), slog.Any("err", err))
		return []string{fmt.Sprintf("Failed to delete %s.", key)}
	}
	telemetry.CountActionDelete()
	if err := s.Reload(ctx); err != nil {
		s.log.Error("reloading actions", slog.Any("err", err))
	}
	return []string{fmt.Sprintf("%s removed from %s.", key, category)}
}

func (s *Set) say(_ context.Context, _ string, args []string) []string {
	if len(args) < 2 {
		return []string{"Usage: !say <msg>"}
	}
	s.bot.Send(strings.Join(args[1:], " "))
	return nil
}

func (s *Set) join(_ context.Context, _ string, args []string) []string {
	if len(args) != 2 {
		return []string{"Usage: !join <channel>"}
	}
	s.bot.JoinRoom(args[1])
	return nil
}

func (s *Set) part(_ context.Context, _ string, args []string) []string {
	if len(args) != 2 {
		return []string{"Usage: !part <channel>"}
	}
	s.bot.PartRoom(args[1])
	return nil
}

func (s *Set) idle(context.Context, string, []string) []string {
	return s.bot.IdleReport()
}

func (s *Set) list(_ context.Context, nick string, args []string) []string {
	if len(args) != 2 {
		return []string{"Usage: !list <category>"}
	}
	category := strings.ToLower(args[1])
	keys, ok := s.catalog.Keys(category)
	if !ok {
		return []string{fmt.Sprintf("%s niet gevonden.", category)}
	}
	s.bot.SendPrivate(nick, fmt.Sprintf("Alle %s: %s", category, strings.Join(keys, ", ")))
	return []string{"Zie prive voor een lijst van alle opties."}
}
