package chat

import "context"

// Transport is the network side of a session. Outbound methods must be safe
// to call from any goroutine; idle timers kick through it directly.
type Transport interface {
	// Connect dials the network. Events start flowing once it returns nil.
	Connect(ctx context.Context) error
	Events() <-chan Event
	Connected() bool
	// Me returns the bot's current nickname.
	Me() string

	Join(room string)
	Part(room string)
	Privmsg(target, text string)
	Action(target, text string)
	Kick(room, nick, reason string)
	Nick(nick string)
	// Identify authenticates the current nickname with the network's
	// nickname service.
	Identify(password string)
	Close() error
}
