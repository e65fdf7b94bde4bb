package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/minilodon/chatlog"
	"github.com/onnwee/minilodon/presence"
	"github.com/onnwee/minilodon/telemetry"
)

var (
	// ErrDisconnected ends a session whose connection was lost.
	ErrDisconnected = errors.New("disconnected")
	// ErrRemovedFromRoom ends a session that lost the monitored or control room.
	ErrRemovedFromRoom = errors.New("removed from mandatory room")
)

// IsFatal reports whether err must end the session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDisconnected) || errors.Is(err, ErrRemovedFromRoom)
}

const (
	commandMarker = "!"
	emoteMarker   = "/me"
	idleReason    = "Idle too long!"
	nickServ      = "NickServ"
)

// Options configures a Session.
type Options struct {
	MainRoom    string
	ControlRoom string
	// Password, when set, is sent to NickServ before joining any room.
	Password        string
	IdleTimeout     time.Duration
	ServiceAccounts []string
	// Now is the clock used for idle reports. Defaults to time.Now.
	Now func() time.Time
}

// Session is one connected bot. All state is mutated by the goroutine in
// Run; other goroutines reach it through Do.
type Session struct {
	opts     Options
	conn     Transport
	logs     *chatlog.Book
	reg      *presence.Registry
	rooms    *Rooms
	commands *Commands
	control  *Commands
	watchers []Observer
	services map[string]bool
	tasks    chan func()
	stopped  chan struct{}
	running  atomic.Bool
	log      *slog.Logger
}

// NewSession wires a session to conn. Room logs are written through logs.
func NewSession(conn Transport, logs *chatlog.Book, opts Options) *Session {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.MainRoom = strings.ToLower(opts.MainRoom)
	opts.ControlRoom = strings.ToLower(opts.ControlRoom)

	s := &Session{
		opts:     opts,
		conn:     conn,
		logs:     logs,
		commands: NewCommands(),
		control:  NewCommands(),
		services: make(map[string]bool),
		tasks:    make(chan func(), 64),
		stopped:  make(chan struct{}),
		log:      slog.Default().With(slog.String("component", "chat")),
	}
	for _, svc := range opts.ServiceAccounts {
		s.services[strings.ToLower(svc)] = true
	}
	s.reg = presence.NewRegistry(opts.IdleTimeout, s.expire, s.ignored)
	s.rooms = NewRooms(opts.MainRoom, opts.ControlRoom, s.reg, s.ignored)
	return s
}

// Commands returns the public command table.
func (s *Session) Commands() *Commands { return s.commands }

// ControlCommands returns the table consulted only in the control room.
func (s *Session) ControlCommands() *Commands { return s.control }

// Observe adds a free-text observer for the monitored room.
func (s *Session) Observe(o Observer) { s.watchers = append(s.watchers, o) }

// Rooms exposes the room tracker.
func (s *Session) Rooms() *Rooms { return s.rooms }

// MainRoom returns the monitored room.
func (s *Session) MainRoom() string { return s.opts.MainRoom }

// Running reports whether Run is processing events.
func (s *Session) Running() bool { return s.running.Load() }

// Connected reports whether the transport is up.
func (s *Session) Connected() bool { return s.conn.Connected() }

func (s *Session) isMe(nick string) bool { return strings.EqualFold(nick, s.conn.Me()) }

func (s *Session) ignored(nick string) bool {
	return s.isMe(nick) || s.services[strings.ToLower(nick)]
}

// Run connects and processes events until ctx is done or a fatal error
// occurs. Canceling ctx is a clean shutdown and returns nil.
func (s *Session) Run(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.running.Store(true)
	defer s.shutdown()

	events := s.conn.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-s.tasks:
			task()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: event stream closed", ErrDisconnected)
			}
			if err := s.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (s *Session) shutdown() {
	s.running.Store(false)
	close(s.stopped)
	telemetry.SetConnected(false)
	s.reg.Clear()
	telemetry.SetTracked(0)
	if err := s.logs.CloseAll(); err != nil {
		s.log.Warn("closing room logs", slog.Any("err", err))
	}
	if err := s.conn.Close(); err != nil {
		s.log.Warn("closing transport", slog.Any("err", err))
	}
}

// Do runs fn on the session goroutine and waits for it.
func (s *Session) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.tasks <- func() { fn(); close(done) }:
	case <-s.stopped:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn for the session goroutine without waiting.
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.stopped:
	}
}

// expire runs on a timer goroutine when nick has been idle too long.
func (s *Session) expire(nick string) {
	s.log.Info("kicking idle participant", slog.String("nick", nick), slog.Duration("idle", s.opts.IdleTimeout))
	s.conn.Kick(s.opts.MainRoom, nick, idleReason)
	telemetry.CountIdleKick()
	s.post(func() {
		s.SendControl(fmt.Sprintf("Kicked %s due to inactivity.", nick))
	})
}

// Handle applies one event. It returns an error only for fatal conditions.
func (s *Session) Handle(ctx context.Context, ev Event) error {
	telemetry.CountEvent(ev.Kind.String())
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := s.log.With(slog.String("corr", telemetry.GetCorrelation(ctx)), slog.String("event", ev.Kind.String()))
	log.Debug("event", slog.String("nick", ev.Nick), slog.String("room", ev.Room), slog.String("target", ev.Target))

	var err error
	switch ev.Kind {
	case EventConnected:
		telemetry.SetConnected(true)
		s.onConnected()
	case EventDisconnected:
		telemetry.SetConnected(false)
		err = fmt.Errorf("%w: %s", ErrDisconnected, ev.Text)
	case EventNotice:
		s.onNotice(ev)
	case EventJoin:
		s.onJoin(ev)
	case EventJoinFailed:
		s.onJoinFailed(ev)
	case EventPart:
		err = s.onPart(ev)
	case EventKick:
		err = s.onKick(ev)
	case EventQuit:
		s.onQuit(ev)
	case EventNick:
		s.onNick(ev)
	case EventNames:
		s.rooms.CollectNames(ev.Room, ev.Users)
	case EventNamesEnd:
		s.rooms.ApplySnapshot(ev.Room)
	case EventMessage:
		s.onMessage(ctx, ev)
	case EventAction:
		s.onAction(ctx, ev)
	case EventPrivate:
		s.onPrivate(ctx, ev)
	}
	telemetry.SetTracked(s.reg.Len())
	if err != nil {
		log.Error("fatal session event", slog.Any("err", err))
	}
	return err
}

func (s *Session) joinMandatory() {
	s.conn.Join(s.opts.ControlRoom)
	s.conn.Join(s.opts.MainRoom)
}

func (s *Session) onConnected() {
	s.log.Info("connected", slog.String("nick", s.conn.Me()))
	if s.opts.Password != "" {
		s.conn.Identify(s.opts.Password)
		return
	}
	s.joinMandatory()
}

func (s *Session) onNotice(ev Event) {
	if strings.EqualFold(ev.Nick, nickServ) && strings.HasPrefix(ev.Text, "Password accepted") {
		s.log.Info("identified with NickServ")
		s.joinMandatory()
	}
}

func (s *Session) onJoin(ev Event) {
	room := strings.ToLower(ev.Room)
	if s.isMe(ev.Nick) {
		if err := s.logs.Open(room); err != nil {
			s.log.Error("open room log", slog.String("room", room), slog.Any("err", err))
		}
		if room == s.opts.MainRoom {
			s.rooms.ResetMembers()
		}
		s.SendControl("Joined " + room)
		return
	}
	s.logLine(room, fmt.Sprintf("%s [%s] joined %s", ev.Nick, ev.Host, room))
	if room == s.opts.MainRoom {
		s.rooms.Arrive(ev.Nick)
	}
}

func (s *Session) onJoinFailed(ev Event) {
	room := strings.ToLower(ev.Room)
	s.log.Warn("join failed", slog.String("room", room), slog.String("reason", ev.Text))
	s.SendControl("Failed to join channel " + room)
	s.rooms.RemoveExtra(room)
}

// leave handles the bot itself leaving room. Losing a mandatory room is fatal.
func (s *Session) leave(room, why string) error {
	if err := s.logs.Close(room); err != nil {
		s.log.Warn("close room log", slog.String("room", room), slog.Any("err", err))
	}
	if s.rooms.Mandatory(room) {
		return fmt.Errorf("%w: %s", ErrRemovedFromRoom, why)
	}
	s.rooms.RemoveExtra(room)
	s.SendControl(why)
	return nil
}

func (s *Session) onPart(ev Event) error {
	room := strings.ToLower(ev.Room)
	if s.isMe(ev.Nick) {
		return s.leave(room, "Left "+room)
	}
	if room == s.opts.MainRoom {
		s.rooms.Depart(ev.Nick)
	}
	s.logLine(room, fmt.Sprintf("%s left %s", ev.Nick, room))
	return nil
}

func (s *Session) onKick(ev Event) error {
	room := strings.ToLower(ev.Room)
	if s.isMe(ev.Target) {
		return s.leave(room, fmt.Sprintf("Kicked from %s by %s (%s)", room, ev.Nick, ev.Text))
	}
	if room == s.opts.MainRoom {
		s.rooms.Depart(ev.Target)
	}
	s.logLine(room, fmt.Sprintf("%s was kicked from %s by %s (%s)", ev.Target, room, ev.Nick, ev.Text))
	return nil
}

func (s *Session) onQuit(ev Event) {
	if !s.rooms.Known(ev.Nick) {
		return
	}
	s.rooms.Depart(ev.Nick)
	s.logLine(s.opts.MainRoom, fmt.Sprintf("%s quit (%s)", ev.Nick, ev.Text))
}

func (s *Session) onNick(ev Event) {
	if s.isMe(ev.Nick) || s.isMe(ev.Target) || !s.rooms.Known(ev.Nick) {
		return
	}
	s.rooms.Rename(ev.Nick, ev.Target)
	s.logLine(s.opts.MainRoom, fmt.Sprintf("%s is now known as %s", ev.Nick, ev.Target))
}

func (s *Session) onMessage(ctx context.Context, ev Event) {
	room := strings.ToLower(ev.Room)
	s.logLine(room, fmt.Sprintf("<%s> %s", ev.Nick, ev.Text))
	switch room {
	case s.opts.MainRoom:
		s.onMainMessage(ctx, ev.Nick, ev.Text)
	case s.opts.ControlRoom:
		if line, ok := strings.CutPrefix(ev.Text, commandMarker); ok {
			s.SendControl(s.dispatch(ctx, s.control, ev.Nick, line)...)
			s.SendControl(s.dispatch(ctx, s.commands, ev.Nick, line)...)
		}
	}
}

func (s *Session) onAction(ctx context.Context, ev Event) {
	room := strings.ToLower(ev.Room)
	s.logLine(room, fmt.Sprintf("%s %s", ev.Nick, ev.Text))
	if room == s.opts.MainRoom {
		s.onMainMessage(ctx, ev.Nick, emoteMarker+" "+ev.Text)
	}
}

func (s *Session) onMainMessage(ctx context.Context, nick, text string) {
	s.rooms.Active(nick)
	if line, ok := strings.CutPrefix(text, commandMarker); ok {
		s.Send(s.dispatch(ctx, s.commands, nick, line)...)
		return
	}
	for _, watch := range s.watchers {
		s.Send(watch(ctx, nick, text)...)
	}
}

func (s *Session) onPrivate(ctx context.Context, ev Event) {
	line := strings.TrimPrefix(ev.Text, commandMarker)
	s.SendPrivate(ev.Nick, s.dispatch(ctx, s.commands, ev.Nick, line)...)
}

func (s *Session) dispatch(ctx context.Context, table *Commands, nick, line string) []string {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	h, ok := table.Lookup(args[0])
	if !ok {
		return nil
	}
	name := strings.ToLower(args[0])
	ctx, span := telemetry.StartSpan(ctx, "chat", "command "+name,
		attribute.String("command", name), attribute.String("nick", nick))
	defer span.End()
	telemetry.CountCommand(name)
	var reply []string
	telemetry.TimeFunc(telemetry.CommandDuration, func() { reply = h(ctx, nick, args) })
	return reply
}

func (s *Session) logLine(room, text string) {
	err := s.logs.Write(room, text)
	switch {
	case err == nil:
	case errors.Is(err, chatlog.ErrNotOpen):
		s.log.Warn("message received on room before join", slog.String("room", room), slog.String("text", text))
	default:
		s.log.Error("write room log", slog.String("room", room), slog.Any("err", err))
	}
}

// Send delivers lines to the monitored room.
func (s *Session) Send(lines ...string) {
	for _, l := range lines {
		s.say(s.opts.MainRoom, l, ChannelLineLimit, true)
	}
}

// SendControl delivers lines to the control room.
func (s *Session) SendControl(lines ...string) {
	for _, l := range lines {
		s.say(s.opts.ControlRoom, l, ChannelLineLimit, true)
	}
}

// SendPrivate delivers lines to nick. Room names are refused.
func (s *Session) SendPrivate(nick string, lines ...string) {
	if nick == "" || strings.HasPrefix(nick, "#") {
		return
	}
	for _, l := range lines {
		s.say(nick, l, PrivateLineLimit, false)
	}
}

// say sends one reply line, wrapping long lines and routing "/me" lines
// through the action path.
func (s *Session) say(target, line string, limit int, logged bool) {
	if line == "" {
		return
	}
	if len(line) > limit {
		for _, part := range Wrap(line, limit) {
			s.say(target, part, limit, logged)
		}
		return
	}
	if action, ok := strings.CutPrefix(line, emoteMarker+" "); ok {
		s.conn.Action(target, action)
		if logged {
			s.logLine(target, fmt.Sprintf("%s %s", s.conn.Me(), action))
		}
		return
	}
	s.conn.Privmsg(target, line)
	if logged {
		s.logLine(target, fmt.Sprintf("<%s> %s", s.conn.Me(), line))
	}
}

// JoinRoom joins an optional room. Mandatory and already joined rooms are
// ignored.
func (s *Session) JoinRoom(room string) {
	if !s.rooms.AddExtra(room) {
		return
	}
	s.conn.Join(strings.ToLower(room))
}

// PartRoom leaves a room previously joined with JoinRoom.
func (s *Session) PartRoom(room string) {
	room = strings.ToLower(room)
	if !s.rooms.RemoveExtra(room) {
		s.SendControl(fmt.Sprintf("Channel %s never joined via !join", room))
		return
	}
	s.conn.Part(room)
}

// Alone returns the participant idle enforcement is suspended for, or "".
func (s *Session) Alone() string { return s.rooms.Alone() }

// IdleTimes yields every tracked participant with their last activity.
func (s *Session) IdleTimes() iter.Seq2[string, time.Time] { return s.reg.IdleTimes() }

// IdleReport renders the answer to an idle query.
func (s *Session) IdleReport() []string {
	if alone := s.rooms.Alone(); alone != "" {
		return []string{alone + " is alone in the room."}
	}
	return presence.Report(s.reg.IdleTimes(), s.opts.Now())
}

// Registry exposes the presence registry. Only the session goroutine may
// use it.
func (s *Session) Registry() *presence.Registry { return s.reg }
