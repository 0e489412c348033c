package bridge

import (
	"context"
	"time"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
)

// StartEvents launches the event loop. It long-polls the backend and
// dispatches every event, in order, to the handlers registered for its name.
// Failures back off exponentially. The loop stops when ctx is cancelled or
// Close is called. Calling StartEvents on a running client is a no-op.
func (c *Client) StartEvents(ctx context.Context) {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		var since uint64
		failures := 0
		for {
			if ctx.Err() != nil {
				return
			}
			batch, err := c.FetchEvents(ctx, since)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				wait := calculateBackoff(failures, defaultRetryInterval)
				c.log.Warn().Err(err).Int("failures", failures).Dur("retry_in", wait).Msg("event poll failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
			if failures > 0 {
				c.log.Info().Int("failures", failures).Msg("event stream recovered")
			}
			failures = 0
			for _, ev := range batch.Events {
				if ev.Seq != 0 && ev.Seq <= since {
					continue
				}
				c.dispatch(ev)
			}
			if batch.Next > since {
				since = batch.Next
			}
		}
	}()
}

// Close stops the event loop and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()
	<-done
	return nil
}

// calculateBackoff doubles interval per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	backoff := interval
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
