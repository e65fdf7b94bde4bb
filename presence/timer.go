// Package presence tracks participants of the monitored room and runs one
// idle countdown per participant.
//
// A Registry owns every Timer. It is not safe for concurrent use: the chat
// session's event loop is its single writer. Timers run on their own
// goroutines and only touch their own fields.
package presence

import (
	"sync"
	"time"
)

// ExpireFunc is invoked once, from the timer goroutine, when a participant
// has been idle for the full idle duration.
type ExpireFunc func(nick string)

// Timer is a single-subject idle countdown. It can be reset on activity or
// canceled on departure and expires at most once.
type Timer struct {
	idle   time.Duration
	expire ExpireFunc

	// resetC holds at most one pending reset. A send that finds the buffer
	// full is dropped: the pending signal already covers it.
	resetC chan struct{}
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	nick     string
	last     time.Time
	canceled bool
	fired    bool
}

// NewTimer returns a stopped Timer for nick. Call Start to begin counting.
func NewTimer(nick string, idle time.Duration, expire ExpireFunc) *Timer {
	return &Timer{
		idle:   idle,
		expire: expire,
		resetC: make(chan struct{}, 1),
		done:   make(chan struct{}),
		nick:   nick,
		last:   time.Now(),
	}
}

// Start records now as the last activity and launches the countdown goroutine.
func (t *Timer) Start() {
	t.mu.Lock()
	t.last = time.Now()
	t.mu.Unlock()
	go t.run()
}

func (t *Timer) run() {
	for {
		deadline := time.NewTimer(t.idle)
		select {
		case <-t.done:
			deadline.Stop()
			return
		case <-t.resetC:
			deadline.Stop()
			continue
		case <-deadline.C:
		}

		// A reset that landed between the wakeup and here still counts.
		select {
		case <-t.resetC:
			continue
		default:
		}

		nick, ok := t.claimExpiry()
		if !ok {
			return
		}
		if t.expire != nil {
			t.expire(nick)
		}
		return
	}
}

// claimExpiry moves the timer to its terminal state unless a cancel got
// there first. Exactly one of the two wins.
func (t *Timer) claimExpiry() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return "", false
	}
	t.canceled = true
	t.fired = true
	t.once.Do(func() { close(t.done) })
	return t.nick, true
}

// Reset restarts the countdown from now. No-op once canceled or fired.
func (t *Timer) Reset() {
	t.mu.Lock()
	if t.canceled {
		t.mu.Unlock()
		return
	}
	t.last = time.Now()
	t.mu.Unlock()

	select {
	case t.resetC <- struct{}{}:
	default:
	}
}

// Cancel stops the countdown permanently. It is idempotent and safe to call
// from any goroutine, including while the countdown is deciding to expire.
func (t *Timer) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
	t.once.Do(func() { close(t.done) })
}

// ChangeIdentity updates the nickname reported on expiry. It counts as
// activity.
func (t *Timer) ChangeIdentity(nick string) {
	t.mu.Lock()
	t.nick = nick
	t.mu.Unlock()
	t.Reset()
}

// Nick returns the display-cased nickname the timer currently tracks.
func (t *Timer) Nick() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nick
}

// LastActive returns the time of the most recent start, reset or rename.
func (t *Timer) LastActive() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Live reports whether the timer can still expire.
func (t *Timer) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.canceled
}

// Fired reports whether the timer expired (as opposed to being canceled).
func (t *Timer) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
