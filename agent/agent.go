// Package agent defines the boundary between the webhook pipeline and
// the agent runtime, plus the built-in deterministic agents.
package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/voxkit/voxkit/store"
	"github.com/voxkit/voxkit/webhook"
)

// Agent handles the webhook events of a voice session. HandleMessage
// returns the messages to append to the conversation history.
type Agent interface {
	Name() string
	HandleSessionStart(ctx context.Context, evt *webhook.SessionStartEvent, stream *webhook.Stream) error
	HandleMessage(ctx context.Context, evt *webhook.MessageEvent, stream *webhook.Stream, history []store.Message) ([]store.Message, error)
	HandleSessionEnd(ctx context.Context, evt *webhook.SessionEndEvent) error
}

// DataHandler is implemented by agents that consume client-pushed data
// events. Agents without it get those events acknowledged on their
// behalf.
type DataHandler interface {
	HandleData(ctx context.Context, evt *webhook.DataEvent, stream *webhook.Stream) error
}

// Factory constructs a fresh agent instance.
type Factory func() Agent

// Registry maps agent names to factories. It is built once at startup
// and never mutated afterwards, so lookups need no locking.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a name. Later registrations of the
// same name win.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// New instantiates an agent by name.
func (r *Registry) New(name string) (Agent, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, r.Names())
	}
	return factory(), nil
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns a registry with the built-in agents.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("echo", func() Agent { return NewEchoAgent() })
	r.Register("starter", func() Agent { return NewStarterAgent() })
	return r
}
