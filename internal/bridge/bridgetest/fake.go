// Package bridgetest provides an in-memory bridge.Bridge for tests.
package bridgetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/five82/mediagrab/internal/bridge"
)

var _ bridge.Bridge = (*Fake)(nil)

// HandlerFunc answers one command. The returned value is JSON round-tripped
// into the caller's out argument.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Call records one Invoke.
type Call struct {
	Command string
	Args    json.RawMessage
}

// Fake is a scriptable backend. Commands without a handler fail.
type Fake struct {
	mu        sync.Mutex
	commands  map[string]HandlerFunc
	calls     []Call
	listeners map[string]map[int]bridge.Handler
	nextID    int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		commands:  make(map[string]HandlerFunc),
		listeners: make(map[string]map[int]bridge.Handler),
	}
}

// Handle installs fn for command, replacing any previous handler.
func (f *Fake) Handle(command string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands[command] = fn
}

// Respond makes command succeed with result.
func (f *Fake) Respond(command string, result any) {
	f.Handle(command, func(context.Context, json.RawMessage) (any, error) {
		return result, nil
	})
}

// Fail makes command fail with a *bridge.CommandError carrying message.
func (f *Fake) Fail(command, message string) {
	f.Handle(command, func(context.Context, json.RawMessage) (any, error) {
		return nil, &bridge.CommandError{Command: command, Message: message, Status: 400}
	})
}

// Invoke implements bridge.Invoker.
func (f *Fake) Invoke(ctx context.Context, command string, args any, out any) error {
	if args == nil {
		args = struct{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode %s args: %w", command, err)
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Command: command, Args: raw})
	fn := f.commands[command]
	f.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("bridgetest: no handler for %q", command)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := fn(ctx, raw)
	if err != nil {
		return err
	}
	if out == nil || result == nil {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", command, err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

// Listen implements bridge.Listener.
func (f *Fake) Listen(event string, handler bridge.Handler) (bridge.Unlisten, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.listeners[event] == nil {
		f.listeners[event] = make(map[int]bridge.Handler)
	}
	f.listeners[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners[event], id)
		})
	}, nil
}

// Emit delivers payload to every listener of event synchronously. It panics
// if payload cannot be encoded.
func (f *Fake) Emit(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("bridgetest: encode %s payload: %v", event, err))
	}
	f.mu.Lock()
	handlers := make([]bridge.Handler, 0, len(f.listeners[event]))
	for _, h := range f.listeners[event] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(raw)
	}
}

// Calls returns the recorded invocations of command, or all of them when
// command is empty.
func (f *Fake) Calls(command string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if command == "" || c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

// ListenerCount reports how many handlers are registered for event.
func (f *Fake) ListenerCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[event])
}
