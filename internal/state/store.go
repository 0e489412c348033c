package state

import (
	"context"
	"sync"
)

// Cell coordinates concurrent updates to a single state value. Reads return a
// clone so callers never alias the stored value.
type Cell[S any] struct {
	mu     sync.RWMutex
	value  S
	clone  func(S) S
	derive func(S) S
	notify []func(S)
}

// Options configure a Cell.
type Options[S any] struct {
	// Clone deep-copies a value. Nil means values are copied by assignment.
	Clone func(S) S
	// Derive runs under the lock after every write and may recompute
	// derived fields.
	Derive func(S) S
}

// NewCell returns a Cell holding initial.
func NewCell[S any](initial S, opts Options[S]) *Cell[S] {
	c := &Cell[S]{clone: opts.Clone, derive: opts.Derive}
	if c.clone == nil {
		c.clone = func(s S) S { return s }
	}
	if c.derive != nil {
		initial = c.derive(initial)
	}
	c.value = initial
	return c
}

// OnChange registers fn to run after every write with a copy of the new value.
// Callbacks run outside the lock, in registration order.
func (c *Cell[S]) OnChange(fn func(S)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = append(c.notify, fn)
}

// Get returns a copy of the current value.
func (c *Cell[S]) Get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value)
}

// Update applies fn to a copy of the current value and stores the result.
// It returns a copy of the stored value.
func (c *Cell[S]) Update(fn func(S) S) S {
	c.mu.Lock()
	next := fn(c.clone(c.value))
	if c.derive != nil {
		next = c.derive(next)
	}
	c.value = next
	out := c.clone(next)
	notify := append([]func(S){}, c.notify...)
	c.mu.Unlock()

	for _, fn := range notify {
		fn(c.clone(out))
	}
	return out
}

// Rollback recovers state after a failed command. snapshot is the value seen
// before the optimistic apply, current is the value now.
type Rollback[S any] func(snapshot, current S) S

// RestoreSnapshot puts back the exact pre-mutation value.
func RestoreSnapshot[S any]() Rollback[S] {
	return func(snapshot, _ S) S { return snapshot }
}

// NoRollback leaves state as is; the caller recovers by other means such as an
// authoritative reload.
func NoRollback[S any]() Rollback[S] {
	return nil
}

// Perform applies an optimistic mutation, runs command, and on failure hands
// the pre-image to rollback. The command error is returned unchanged.
func Perform[S any](ctx context.Context, c *Cell[S], apply func(S) S, command func(context.Context) error, rollback Rollback[S]) error {
	var snapshot S
	c.Update(func(current S) S {
		snapshot = c.clone(current)
		return apply(current)
	})

	err := command(ctx)
	if err == nil {
		return nil
	}
	if rollback != nil {
		c.Update(func(current S) S { return rollback(snapshot, current) })
	}
	return err
}
