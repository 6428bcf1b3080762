package hub

import (
	"fmt"
	"sort"
	"strings"
)

// CommandFunc produces the reply sent back to the client that issued a
// command. args is the text following the command name, trimmed.
type CommandFunc func(h *Hub, c *Client, args string) string

// CommandTable maps "/name" keywords to handlers. A frame is a command when
// its first word is a registered name; anything else is broadcast as usual.
type CommandTable struct {
	handlers map[string]CommandFunc
}

// NewCommandTable returns an empty table.
func NewCommandTable() *CommandTable {
	return &CommandTable{handlers: make(map[string]CommandFunc)}
}

// DefaultCommands returns a table with the built-in /count and /help commands.
func DefaultCommands() *CommandTable {
	t := NewCommandTable()
	t.Handle("/count", func(h *Hub, _ *Client, _ string) string {
		n := h.Len()
		if n == 1 {
			return "1 client connected"
		}
		return fmt.Sprintf("%d clients connected", n)
	})
	t.Handle("/help", func(_ *Hub, _ *Client, _ string) string {
		return "commands: " + strings.Join(t.Names(), ", ")
	})
	return t
}

// Handle registers fn under name. Names must start with "/".
func (t *CommandTable) Handle(name string, fn CommandFunc) {
	if !strings.HasPrefix(name, "/") {
		panic(fmt.Sprintf("hub: command name %q must start with /", name))
	}
	t.handlers[name] = fn
}

// Names returns the registered command names in sorted order.
func (t *CommandTable) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the command named by the first word of text, if any.
func (t *CommandTable) Dispatch(h *Hub, c *Client, text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", false
	}

	name, args, _ := strings.Cut(trimmed, " ")
	fn, ok := t.handlers[name]
	if !ok {
		return "", false
	}
	return fn(h, c, strings.TrimSpace(args)), true
}
