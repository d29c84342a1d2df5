// Package dispatch routes normalized updates to registered handlers by a
// fixed precedence: callback, join, command, no-op.
package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Bayashat/zerde-bot/internal/logger"
	"github.com/Bayashat/zerde-bot/internal/update"
)

// Handler processes one normalized update.
type Handler func(ctx context.Context, u *update.Context) error

// Command pairs a handler with its registration metadata.
type Command struct {
	Handler     Handler
	Description string
	AdminOnly   bool
}

// Registry holds the command table and the two optional join/callback
// slots. It is built once at startup and passed into the Dispatcher; no
// dynamic discovery, no registration after wiring.
type Registry struct {
	commands map[string]Command
	join     Handler
	callback Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// RegisterCommand adds a command keyed by its slash-prefixed name.
// Invalid or duplicate registrations are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd Command) {
	if r == nil || name == "" || cmd.Handler == nil {
		logger.Warn(context.Background(), "dispatch", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if !strings.HasPrefix(name, "/") {
		logger.Warn(context.Background(), "dispatch", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(context.Background(), "dispatch", "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// SetJoinHandler installs the new-chat-members handler.
func (r *Registry) SetJoinHandler(h Handler) {
	r.join = h
}

// SetCallbackHandler installs the callback-query handler.
func (r *Registry) SetCallbackHandler(h Handler) {
	r.callback = h
}

// LookupCommand returns the command registered under name.
func (r *Registry) LookupCommand(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// ListCommands returns sorted command names (for diagnostics).
func (r *Registry) ListCommands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
