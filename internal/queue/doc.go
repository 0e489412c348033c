// Package queue keeps the client's copy of the backend download queue.
//
// Every mutation is applied locally first and then confirmed by a backend
// command through state.Perform. Recovery differs per operation:
//
//	AddToQueue      remove the synthetic item, return the error
//	CancelItem      authoritative Reload, return the error
//	RemoveItem      restore the pre-image, return the error
//	ClearCompleted  restore the pre-image, return the error
//	MoveUp/MoveDown restore the pre-image, log only
//	ReorderItems    restore the pre-image, log only
//
// Pushed queue-update events are reconciled in arrival order. Counts are
// always recomputed from the item list, never adjusted in place.
package queue
