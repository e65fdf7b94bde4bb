package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Handler runs a command. args[0] is the command name. It returns the reply
// lines; nil means no reply.
type Handler func(ctx context.Context, nick string, args []string) []string

// Observer sees every non-command message in the monitored room.
type Observer func(ctx context.Context, nick, text string) []string

// Commands maps command names to handlers. Registration returns the table so
// calls can be chained at startup.
type Commands struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewCommands returns an empty table.
func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name.
func (c *Commands) Register(name string, h Handler) *Commands {
	c.mu.Lock()
	c.handlers[strings.ToLower(name)] = h
	c.mu.Unlock()
	return c
}

// Remove drops name from the table.
func (c *Commands) Remove(name string) {
	c.mu.Lock()
	delete(c.handlers, strings.ToLower(name))
	c.mu.Unlock()
}

// Lookup returns the handler for name.
func (c *Commands) Lookup(name string) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[strings.ToLower(name)]
	return h, ok
}

// Has reports whether name is registered.
func (c *Commands) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Names returns the registered names, sorted.
func (c *Commands) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.handlers))
	for n := range c.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
