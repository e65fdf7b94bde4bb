package chat

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	irc "github.com/fluffle/goirc/client"
)

// IRCConfig holds connection settings for a plain IRC network.
type IRCConfig struct {
	Server   string
	Nick     string
	TLS      bool
	Insecure bool
	Version  string
	Quit     string
}

// IRCConn is a Transport over github.com/fluffle/goirc.
type IRCConn struct {
	cfg    IRCConfig
	conn   *irc.Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger
}

// numeric replies the bot reacts to
const (
	rplNamReply   = "353"
	rplEndOfNames = "366"
)

// join failures: channel full, invite only, banned, bad key
var joinFailures = []string{"471", "473", "474", "475"}

// NewIRCConn prepares a client. Nothing is dialed until Connect.
func NewIRCConn(cfg IRCConfig) *IRCConn {
	c := &IRCConn{
		cfg:    cfg,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
		log:    slog.Default().With(slog.String("component", "irc")),
	}

	ic := irc.NewConfig(cfg.Nick)
	ic.Server = cfg.Server
	ic.SSL = cfg.TLS
	if cfg.TLS {
		host := cfg.Server
		if i := strings.LastIndexByte(host, ':'); i > 0 {
			host = host[:i]
		}
		ic.SSLConfig = &tls.Config{ServerName: host, InsecureSkipVerify: cfg.Insecure} //nolint:gosec // opt-in for self-signed networks
	}
	ic.NewNick = func(n string) string { return n + "_" }
	if cfg.Version != "" {
		ic.Version = cfg.Version
	}
	if cfg.Quit != "" {
		ic.QuitMessage = cfg.Quit
	}
	c.conn = irc.Client(ic)
	c.register()
	return c
}

func (c *IRCConn) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *IRCConn) register() {
	c.conn.HandleFunc(irc.CONNECTED, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventConnected, Time: l.Time})
	})
	c.conn.HandleFunc(irc.DISCONNECTED, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventDisconnected, Text: "connection closed", Time: l.Time})
	})
	c.conn.HandleFunc(irc.NOTICE, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventNotice, Nick: l.Nick, Target: l.Target(), Text: l.Text(), Time: l.Time})
	})
	c.conn.HandleFunc(irc.JOIN, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventJoin, Nick: l.Nick, Host: l.Ident + "@" + l.Host, Room: arg(l, 0), Time: l.Time})
	})
	c.conn.HandleFunc(irc.PART, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventPart, Nick: l.Nick, Room: arg(l, 0), Text: arg(l, 1), Time: l.Time})
	})
	c.conn.HandleFunc(irc.KICK, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventKick, Nick: l.Nick, Room: arg(l, 0), Target: arg(l, 1), Text: arg(l, 2), Time: l.Time})
	})
	c.conn.HandleFunc(irc.QUIT, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventQuit, Nick: l.Nick, Text: arg(l, 0), Time: l.Time})
	})
	c.conn.HandleFunc(irc.NICK, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventNick, Nick: l.Nick, Target: arg(l, 0), Time: l.Time})
	})
	c.conn.HandleFunc(irc.PRIVMSG, func(_ *irc.Conn, l *irc.Line) {
		c.emitMessage(l, EventMessage)
	})
	c.conn.HandleFunc(irc.ACTION, func(_ *irc.Conn, l *irc.Line) {
		c.emitMessage(l, EventAction)
	})
	c.conn.HandleFunc(rplNamReply, func(_ *irc.Conn, l *irc.Line) {
		// me = #room :nick nick nick
		c.emit(Event{Kind: EventNames, Room: arg(l, 2), Users: strings.Fields(arg(l, 3)), Time: l.Time})
	})
	c.conn.HandleFunc(rplEndOfNames, func(_ *irc.Conn, l *irc.Line) {
		c.emit(Event{Kind: EventNamesEnd, Room: arg(l, 1), Time: l.Time})
	})
	for _, code := range joinFailures {
		c.conn.HandleFunc(code, func(_ *irc.Conn, l *irc.Line) {
			c.emit(Event{Kind: EventJoinFailed, Room: arg(l, 1), Text: arg(l, 2), Time: l.Time})
		})
	}
}

func (c *IRCConn) emitMessage(l *irc.Line, kind EventKind) {
	if l.Public() {
		c.emit(Event{Kind: kind, Nick: l.Nick, Room: l.Target(), Text: l.Text(), Time: l.Time})
		return
	}
	if kind == EventMessage {
		c.emit(Event{Kind: EventPrivate, Nick: l.Nick, Text: l.Text(), Time: l.Time})
	}
}

func arg(l *irc.Line, i int) string {
	if i < len(l.Args) {
		return l.Args[i]
	}
	return ""
}

// Connect dials the server. Registration completes asynchronously and is
// reported as EventConnected.
func (c *IRCConn) Connect(ctx context.Context) error {
	c.log.Info("connecting", slog.String("server", c.cfg.Server), slog.String("nick", c.cfg.Nick))
	if err := c.conn.ConnectContext(ctx); err != nil {
		return fmt.Errorf("irc connect %s: %w", c.cfg.Server, err)
	}
	return nil
}

func (c *IRCConn) Events() <-chan Event { return c.events }
func (c *IRCConn) Connected() bool { return c.conn.Connected() }

func (c *IRCConn) Me() string {
	if me := c.conn.Me(); me != nil {
		return me.Nick
	}
	return c.cfg.Nick
}

func (c *IRCConn) Join(room string) { c.conn.Join(room) }
func (c *IRCConn) Part(room string) { c.conn.Part(room) }
func (c *IRCConn) Privmsg(target, text string) { c.conn.Privmsg(target, text) }
func (c *IRCConn) Action(target, text string) { c.conn.Action(target, text) }
func (c *IRCConn) Kick(room, nick, reason string) { c.conn.Kick(room, nick, reason) }
func (c *IRCConn) Nick(nick string) { c.conn.Nick(nick) }
func (c *IRCConn) Identify(password string) { c.conn.Privmsg(nickServ, "IDENTIFY "+password) }

// Close sends QUIT and stops event delivery.
func (c *IRCConn) Close() error {
	c.once.Do(func() { close(c.done) })
	if c.conn.Connected() {
		c.conn.Quit()
	}
	return nil
}
