package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	twitch "github.com/gempir/go-twitch-irc/v4"
)

// TwitchConfig holds credentials for Twitch chat.
type TwitchConfig struct {
	Nick string
	// Token is the chat OAuth token, with or without the "oauth:" prefix.
	Token string
}

// namesSettle is how long the roster may stay quiet before it is applied.
// Twitch never reports the end of a NAMES listing to the client.
const namesSettle = 750 * time.Millisecond

// timeoutSeconds is the chat timeout used in place of a kick.
const timeoutSeconds = 600

// TwitchConn is a Transport over github.com/gempir/go-twitch-irc. Twitch has
// no kick, nickname change or NickServ: kicks become timeouts, the other two
// are no-ops. Private replies are dropped since whispers cannot be sent over
// chat.
type TwitchConn struct {
	cfg       TwitchConfig
	client    *twitch.Client
	events    chan Event
	done      chan struct{}
	once      sync.Once
	connected atomic.Bool
	settle    time.Duration
	namesMu   sync.Mutex
	names     map[string]func(func())
	log       *slog.Logger
}

// NewTwitchConn prepares a Twitch chat client.
func NewTwitchConn(cfg TwitchConfig) *TwitchConn {
	cfg.Nick = strings.ToLower(cfg.Nick)
	token := cfg.Token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	c := &TwitchConn{
		cfg:    cfg,
		client: twitch.NewClient(cfg.Nick, token),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
		settle: namesSettle,
		names:  make(map[string]func(func())),
		log:    slog.Default().With(slog.String("component", "twitch")),
	}
	c.register()
	return c
}

func twitchRoom(name string) string { return "#" + strings.ToLower(strings.TrimPrefix(name, "#")) }
func twitchChannel(r string) string { return strings.ToLower(strings.TrimPrefix(r, "#")) }

func (c *TwitchConn) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *TwitchConn) register() {
	c.client.OnConnect(func() {
		c.connected.Store(true)
		c.emit(Event{Kind: EventConnected})
	})
	c.client.OnSelfJoinMessage(func(m twitch.UserJoinMessage) {
		c.emit(Event{Kind: EventJoin, Nick: c.cfg.Nick, Room: twitchRoom(m.Channel)})
	})
	c.client.OnSelfPartMessage(func(m twitch.UserPartMessage) {
		c.emit(Event{Kind: EventPart, Nick: c.cfg.Nick, Room: twitchRoom(m.Channel)})
	})
	c.client.OnUserJoinMessage(func(m twitch.UserJoinMessage) {
		c.emit(Event{Kind: EventJoin, Nick: m.User, Host: m.User + "@" + m.User + ".tmi.twitch.tv", Room: twitchRoom(m.Channel)})
	})
	c.client.OnUserPartMessage(func(m twitch.UserPartMessage) {
		c.emit(Event{Kind: EventPart, Nick: m.User, Room: twitchRoom(m.Channel)})
	})
	c.client.OnClearChatMessage(func(m twitch.ClearChatMessage) {
		if m.TargetUsername == "" {
			return
		}
		reason := "banned"
		if m.BanDuration > 0 {
			reason = fmt.Sprintf("timed out for %ds", m.BanDuration)
		}
		c.emit(Event{Kind: EventKick, Room: twitchRoom(m.Channel), Target: m.TargetUsername, Text: reason, Time: m.Time})
	})
	c.client.OnNoticeMessage(func(m twitch.NoticeMessage) {
		switch m.MsgID {
		case "msg_banned", "msg_channel_suspended", "msg_room_not_found":
			c.emit(Event{Kind: EventJoinFailed, Room: twitchRoom(m.Channel), Text: m.Message})
		default:
			c.emit(Event{Kind: EventNotice, Room: twitchRoom(m.Channel), Text: m.Message})
		}
	})
	c.client.OnNamesMessage(func(m twitch.NamesMessage) {
		r := twitchRoom(m.Channel)
		c.emit(Event{Kind: EventNames, Room: r, Users: m.Users})
		c.settleNames(r)
	})
	c.client.OnPrivateMessage(func(m twitch.PrivateMessage) {
		kind := EventMessage
		if m.Action {
			kind = EventAction
		}
		c.emit(Event{Kind: kind, Nick: m.User.Name, Room: twitchRoom(m.Channel), Text: m.Message, Time: m.Time})
	})
	c.client.OnWhisperMessage(func(m twitch.WhisperMessage) {
		c.emit(Event{Kind: EventPrivate, Nick: m.User.Name, Target: c.cfg.Nick, Text: m.Message})
	})
}

// settleNames emits EventNamesEnd for room once its roster has been quiet
// for the settle period.
func (c *TwitchConn) settleNames(room string) {
	c.namesMu.Lock()
	settled, ok := c.names[room]
	if !ok {
		settled = debounce.New(c.settle)
		c.names[room] = settled
	}
	c.namesMu.Unlock()
	settled(func() { c.emit(Event{Kind: EventNamesEnd, Room: room}) })
}

// Connect starts the client in the background. Twitch's client blocks in
// Connect for the life of the connection; its return is reported as
// EventDisconnected.
func (c *TwitchConn) Connect(ctx context.Context) error {
	c.log.Info("connecting", slog.String("nick", c.cfg.Nick))
	go func() {
		err := c.client.Connect()
		c.connected.Store(false)
		if errors.Is(err, twitch.ErrClientDisconnected) {
			return
		}
		text := "connection closed"
		if err != nil {
			text = err.Error()
		}
		c.emit(Event{Kind: EventDisconnected, Text: text})
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return nil
}

func (c *TwitchConn) Events() <-chan Event { return c.events }
func (c *TwitchConn) Connected() bool { return c.connected.Load() }
func (c *TwitchConn) Me() string { return c.cfg.Nick }
func (c *TwitchConn) Join(r string) { c.client.Join(twitchChannel(r)) }
func (c *TwitchConn) Part(r string) { c.client.Depart(twitchChannel(r)) }

// Privmsg sends to a room. Non-room targets are dropped.
func (c *TwitchConn) Privmsg(target, text string) {
	if !strings.HasPrefix(target, "#") {
		c.log.Debug("dropping private reply", slog.String("to", target))
		return
	}
	c.client.Say(twitchChannel(target), text)
}

func (c *TwitchConn) Action(target, text string) { c.Privmsg(target, "/me "+text) }

// Kick times nick out, which is the closest Twitch chat has to a kick.
func (c *TwitchConn) Kick(r, nick, reason string) {
	c.client.Say(twitchChannel(r), fmt.Sprintf("/timeout %s %d %s", nick, timeoutSeconds, reason))
}

func (c *TwitchConn) Nick(string) {}
func (c *TwitchConn) Identify(string) {}

// Close disconnects and stops event delivery.
func (c *TwitchConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if c.connected.Load() {
			err = c.client.Disconnect()
		}
	})
	return err
}
