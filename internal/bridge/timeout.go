package bridge

import (
	"context"
	"time"
)

type timeoutBridge struct {
	Bridge
	timeout time.Duration
}

// WithTimeout returns b with every Invoke bounded by d, so a hung backend
// fails the command instead of leaving optimistic state in place forever.
// A non-positive d returns b unchanged.
func WithTimeout(b Bridge, d time.Duration) Bridge {
	if d <= 0 {
		return b
	}
	return &timeoutBridge{Bridge: b, timeout: d}
}

func (t *timeoutBridge) Invoke(ctx context.Context, command string, args any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Bridge.Invoke(ctx, command, args, out)
}
