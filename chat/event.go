package chat

import (
	"strings"
	"time"
)

// EventKind classifies inbound events.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventNotice
	EventJoin
	EventJoinFailed
	EventPart
	EventQuit
	EventKick
	EventNick
	EventNames
	EventNamesEnd
	EventMessage
	EventAction
	EventPrivate
)

var eventNames = [...]string{
	EventConnected:    "connected",
	EventDisconnected: "disconnected",
	EventNotice:       "notice",
	EventJoin:         "join",
	EventJoinFailed:   "join_failed",
	EventPart:         "part",
	EventQuit:         "quit",
	EventKick:         "kick",
	EventNick:         "nick",
	EventNames:        "names",
	EventNamesEnd:     "names_end",
	EventMessage:      "message",
	EventAction:       "action",
	EventPrivate:      "private",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is one inbound occurrence reported by a Transport.
type Event struct {
	Kind EventKind
	// Nick is the source participant (the kicker for EventKick, the old
	// nickname for EventNick).
	Nick string
	// Host is the source's ident@host when the network reports one.
	Host string
	// Room is the room the event happened in.
	Room string
	// Target is the kicked participant, the new nickname, or the recipient
	// of a private message.
	Target string
	// Text is the message body or the part/quit/kick reason.
	Text string
	// Users is the roster carried by EventNames.
	Users []string
	Time  time.Time
}

// Args splits Text on whitespace.
func (e Event) Args() []string { return strings.Fields(e.Text) }
