package state

import "errors"

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("store closed")

// Phase tracks a store's event subscription.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseSubscribed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseSubscribed:
		return "subscribed"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
