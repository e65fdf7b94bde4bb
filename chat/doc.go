// Package chat runs the bot's session against a chat network.
//
// A Session consumes Events from a Transport on a single goroutine and owns
// everything that goroutine mutates:
//   - Rooms: joined rooms, the monitored room's membership and the "alone"
//     condition that suspends idle enforcement for the last participant.
//   - a presence.Registry with one idle Timer per participant of the
//     monitored room.
//   - a chatlog.Book with one log file per joined room.
//   - the public and control command tables plus free-text observers.
//
// Two transports are provided: IRCConn (github.com/fluffle/goirc) for IRC
// networks and TwitchConn (github.com/gempir/go-twitch-irc) for Twitch chat.
//
// Losing the connection, or being removed from the monitored or control
// room, ends Run with an error matching ErrDisconnected or
// ErrRemovedFromRoom.
package chat
