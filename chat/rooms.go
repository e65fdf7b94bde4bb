package chat

import (
	"sort"
	"strings"

	"github.com/onnwee/minilodon/presence"
)

// Rooms tracks the joined rooms and the monitored room's membership, and
// keeps the presence registry in step with it. When exactly one participant
// is left in the monitored room they are "alone": their timer is removed
// until somebody else arrives.
type Rooms struct {
	main, control string
	reg           *presence.Registry
	ignored       func(nick string) bool

	extra   map[string]bool
	members map[string]string
	names   map[string]string
	alone   string
}

// NewRooms returns a tracker for the given monitored and control rooms.
// ignored reports nicknames that are never counted as participants.
func NewRooms(main, control string, reg *presence.Registry, ignored func(string) bool) *Rooms {
	if ignored == nil {
		ignored = func(string) bool { return false }
	}
	return &Rooms{
		main:    strings.ToLower(main),
		control: strings.ToLower(control),
		reg:     reg,
		ignored: ignored,
		extra:   make(map[string]bool),
		members: make(map[string]string),
	}
}

// Main returns the monitored room.
func (r *Rooms) Main() string { return r.main }

// Control returns the control room.
func (r *Rooms) Control() string { return r.control }

// Mandatory reports whether room is the monitored or control room.
func (r *Rooms) Mandatory(room string) bool {
	room = strings.ToLower(room)
	return room == r.main || room == r.control
}

// Alone returns the participant enforcement is suspended for, or "".
func (r *Rooms) Alone() string { return r.alone }

// IsMember reports whether nick is known to be in the monitored room.
func (r *Rooms) IsMember(nick string) bool {
	_, ok := r.members[strings.ToLower(nick)]
	return ok
}

// Known reports whether nick is a member or appears in the roster being
// collected.
func (r *Rooms) Known(nick string) bool {
	_, pending := r.names[strings.ToLower(nick)]
	return pending || r.IsMember(nick)
}

// Members returns the monitored room's participants, sorted by key.
func (r *Rooms) Members() []string {
	keys := make([]string, 0, len(r.members))
	for k := range r.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = r.members[k]
	}
	return out
}

// ResetMembers forgets the monitored room's membership and every timer.
// Called when the bot (re)joins the monitored room.
func (r *Rooms) ResetMembers() {
	r.members = make(map[string]string)
	r.names = nil
	r.alone = ""
	r.reg.Clear()
}

// CollectNames buffers one roster chunk for room.
func (r *Rooms) CollectNames(room string, users []string) {
	if strings.ToLower(room) != r.main {
		return
	}
	if r.names == nil {
		r.names = make(map[string]string)
	}
	for _, u := range users {
		nick := strings.TrimLeft(u, "~&@%+")
		if nick == "" || r.ignored(nick) {
			continue
		}
		r.names[strings.ToLower(nick)] = nick
	}
}

// ApplySnapshot replaces the monitored room's membership with the roster
// buffered by CollectNames, including arrivals and departures seen while it
// was being collected.
func (r *Rooms) ApplySnapshot(room string) {
	if strings.ToLower(room) != r.main {
		return
	}
	snapshot := r.names
	r.names = nil
	if snapshot == nil {
		snapshot = make(map[string]string)
	}
	for k, nick := range r.members {
		if _, still := snapshot[k]; !still {
			r.reg.Remove(nick)
		}
	}
	r.members = snapshot
	r.alone = ""

	switch len(r.members) {
	case 0:
	case 1:
		r.settle()
	default:
		for _, nick := range r.members {
			r.reg.Add(nick)
		}
	}
}

// Arrive records nick joining the monitored room.
func (r *Rooms) Arrive(nick string) {
	if r.ignored(nick) {
		return
	}
	r.members[strings.ToLower(nick)] = nick
	if r.names != nil {
		r.names[strings.ToLower(nick)] = nick
	}
	if r.alone != "" && !strings.EqualFold(r.alone, nick) {
		r.reg.Add(r.alone)
		r.alone = ""
	}
	if len(r.members) == 1 {
		r.settle()
		return
	}
	r.reg.Add(nick)
}

// Depart records nick leaving the monitored room by part, quit or kick.
func (r *Rooms) Depart(nick string) {
	k := strings.ToLower(nick)
	if r.names != nil {
		delete(r.names, k)
	}
	if _, ok := r.members[k]; !ok {
		return
	}
	delete(r.members, k)
	r.reg.Remove(nick)
	if strings.EqualFold(r.alone, nick) {
		r.alone = ""
	}
	r.settle()
}

// Rename follows a nickname change inside the monitored room.
func (r *Rooms) Rename(from, to string) {
	k := strings.ToLower(from)
	if _, ok := r.names[k]; ok {
		delete(r.names, k)
		r.names[strings.ToLower(to)] = to
	}
	if _, ok := r.members[k]; !ok {
		return
	}
	delete(r.members, k)
	r.members[strings.ToLower(to)] = to
	if strings.EqualFold(r.alone, from) {
		r.alone = to
		return
	}
	r.reg.Rename(from, to)
}

// Active records activity by nick in the monitored room. A participant whose
// join was missed is added on their first message.
func (r *Rooms) Active(nick string) {
	if r.ignored(nick) {
		return
	}
	if !r.IsMember(nick) {
		r.Arrive(nick)
	}
	if strings.EqualFold(r.alone, nick) {
		return
	}
	r.reg.Add(nick)
	r.reg.Reset(nick)
}

// settle applies the alone rule after a membership change.
func (r *Rooms) settle() {
	switch len(r.members) {
	case 0:
		r.alone = ""
	case 1:
		for _, nick := range r.members {
			r.alone = nick
			r.reg.Remove(nick)
		}
	}
}

// AddExtra records an optional room. It reports false when room is mandatory
// or already present.
func (r *Rooms) AddExtra(room string) bool {
	room = strings.ToLower(room)
	if r.Mandatory(room) || r.extra[room] {
		return false
	}
	r.extra[room] = true
	return true
}

// RemoveExtra forgets an optional room. It reports whether it was present.
func (r *Rooms) RemoveExtra(room string) bool {
	room = strings.ToLower(room)
	if !r.extra[room] {
		return false
	}
	delete(r.extra, room)
	return true
}

// HasExtra reports whether room was joined on request.
func (r *Rooms) HasExtra(room string) bool { return r.extra[strings.ToLower(room)] }

// Extras returns the optional rooms, sorted.
func (r *Rooms) Extras() []string {
	out := make([]string, 0, len(r.extra))
	for room := range r.extra {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}
