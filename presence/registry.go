package presence

import (
	"iter"
	"strings"
	"time"
)

// Registry maps lowercased nicknames to their idle Timer.
type Registry struct {
	idle    time.Duration
	expire  ExpireFunc
	ignored func(nick string) bool
	timers  map[string]*Timer
	order   []string
}

// NewRegistry returns an empty registry. ignored reports nicknames that never
// get a timer (the bot itself, service accounts); it may be nil.
func NewRegistry(idle time.Duration, expire ExpireFunc, ignored func(nick string) bool) *Registry {
	return &Registry{
		idle:    idle,
		expire:  expire,
		ignored: ignored,
		timers:  make(map[string]*Timer),
	}
}

func key(nick string) string { return strings.ToLower(nick) }

// Add starts a timer for nick unless one is already running. A timer that
// already fired is replaced, so a participant who survived a failed kick is
// tracked again.
func (r *Registry) Add(nick string) {
	if nick == "" || (r.ignored != nil && r.ignored(nick)) {
		return
	}
	k := key(nick)
	if t, ok := r.timers[k]; ok {
		if t.Live() {
			return
		}
		r.drop(k)
	}
	t := NewTimer(nick, r.idle, r.expire)
	r.timers[k] = t
	r.order = append(r.order, k)
	t.Start()
}

// Remove cancels and discards the timer for nick, if any.
func (r *Registry) Remove(nick string) {
	k := key(nick)
	if t, ok := r.timers[k]; ok {
		t.Cancel()
		r.drop(k)
	}
}

// Rename moves the timer from one nickname to another and treats the rename
// as activity.
func (r *Registry) Rename(from, to string) {
	fk, tk := key(from), key(to)
	t, found := r.timers[fk]
	if !found {
		return
	}
	if fk != tk {
		if prev, clash := r.timers[tk]; clash {
			prev.Cancel()
			r.drop(tk)
		}
		delete(r.timers, fk)
		r.timers[tk] = t
		for i, k := range r.order {
			if k == fk {
				r.order[i] = tk
				break
			}
		}
	}
	t.ChangeIdentity(to)
}

// Reset records activity for nick, if tracked.
func (r *Registry) Reset(nick string) {
	if t, ok := r.timers[key(nick)]; ok {
		t.Reset()
	}
}

// Has reports whether nick has a timer.
func (r *Registry) Has(nick string) bool {
	_, ok := r.timers[key(nick)]
	return ok
}

// Get returns the timer for nick.
func (r *Registry) Get(nick string) (*Timer, bool) {
	t, ok := r.timers[key(nick)]
	return t, ok
}

// Len returns the number of tracked participants.
func (r *Registry) Len() int { return len(r.timers) }

// Clear cancels every timer.
func (r *Registry) Clear() {
	for _, t := range r.timers {
		t.Cancel()
	}
	r.timers = make(map[string]*Timer)
	r.order = nil
}

// IdleTimes yields (display nick, last activity) for every tracked
// participant in insertion order. Ranging over it again starts over.
func (r *Registry) IdleTimes() iter.Seq2[string, time.Time] {
	return func(yield func(string, time.Time) bool) {
		for _, k := range r.order {
			t, ok := r.timers[k]
			if !ok {
				continue
			}
			if !yield(t.Nick(), t.LastActive()) {
				return
			}
		}
	}
}

func (r *Registry) drop(k string) {
	delete(r.timers, k)
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
