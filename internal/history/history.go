// Package history keeps a short trailing window of each user's conversation.
package history

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role
	Content string
}

const (
	DefaultWindow = 10
	DefaultIdle   = 24 * time.Hour
)

// Opts is a carrier of options for Book.
type Opts struct {
	// Window is how many turns are kept per user.
	Window int
	// Idle drops a user's history after this long without new turns.
	Idle time.Duration

	// Now overrides the clock, used by tests.
	Now func() time.Time
}

type conversation struct {
	turns []Turn
	seen  time.Time
}

// Book stores up to window turns per user, dropping the oldest first.
// Conversations idle for longer than Idle are forgotten.
type Book struct {
	window int
	idle   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	convs     map[int64]*conversation
	lastSweep time.Time
}

func NewBook(opts Opts) *Book {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Idle <= 0 {
		opts.Idle = DefaultIdle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Book{
		window:    opts.Window,
		idle:      opts.Idle,
		now:       opts.Now,
		convs:     make(map[int64]*conversation),
		lastSweep: opts.Now(),
	}
}

// Append adds turns for userID and trims the history to the window.
func (b *Book) Append(userID int64, turns ...Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.maybeSweep(now)

	c := b.live(userID, now)
	if c == nil {
		c = &conversation{}
		b.convs[userID] = c
	}
	c.turns = Trim(append(c.turns, turns...), b.window)
	c.seen = now
}

// Snapshot returns a copy of the user's history, oldest first.
func (b *Book) Snapshot(userID int64) []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.live(userID, b.now())
	if c == nil {
		return nil
	}
	return append([]Turn(nil), c.turns...)
}

func (b *Book) Reset(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.convs, userID)
}

// live returns the user's conversation unless it went idle, which is dropped.
// Must be called with mu held.
func (b *Book) live(userID int64, now time.Time) *conversation {
	c, ok := b.convs[userID]
	if !ok {
		return nil
	}
	if now.Sub(c.seen) > b.idle {
		delete(b.convs, userID)
		return nil
	}
	return c
}

// maybeSweep drops every idle conversation, at most once per idle period.
// Must be called with mu held.
func (b *Book) maybeSweep(now time.Time) {
	if now.Sub(b.lastSweep) < b.idle {
		return
	}
	b.lastSweep = now
	for id, c := range b.convs {
		if now.Sub(c.seen) > b.idle {
			delete(b.convs, id)
		}
	}
}

// Trim keeps the last n turns. The result never aliases a dropped prefix.
func Trim(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return append([]Turn(nil), lo.Subset(turns, -n, uint(n))...)
}
