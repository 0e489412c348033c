// Package schedule promotes scheduled downloads from preferences into the
// queue once their time has come.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/model"
)

// DefaultInterval is how often due downloads are checked.
const DefaultInterval = 10 * time.Second

// Queue accepts promoted downloads.
type Queue interface {
	AddToQueue(ctx context.Context, cfg model.DownloadConfig) (model.QueueItem, error)
}

// Preferences holds the scheduled downloads.
type Preferences interface {
	Get() model.Preferences
	RemoveScheduledDownload(id string) bool
}

// Scheduler checks for due downloads on a fixed cadence.
type Scheduler struct {
	queue    Queue
	prefs    Preferences
	log      zerolog.Logger
	now      func() time.Time
	interval time.Duration

	mu sync.Mutex
}

// Option customises a Scheduler.
type Option func(*Scheduler)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInterval sets the check cadence. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New returns a Scheduler. Call Start to run it in the background.
func New(q Queue, p Preferences, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:    q,
		prefs:    p,
		log:      zerolog.Nop(),
		now:      time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches a goroutine that checks immediately and then on every tick
// until ctx is cancelled. It returns at once.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.CheckNow(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// CheckNow queues every enabled download whose time has passed and removes
// it from preferences. A download the queue rejects stays scheduled for the
// next check. It returns the number promoted.
func (s *Scheduler) CheckNow(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	promoted := 0
	for _, sd := range s.prefs.Get().ScheduledDownloads {
		if !sd.Due(now) {
			continue
		}
		if ctx.Err() != nil {
			return promoted
		}
		item, err := s.queue.AddToQueue(ctx, sd.Config)
		if err != nil {
			s.log.Warn().Err(err).Str("id", sd.ID).Str("url", sd.Config.URL).Msg("scheduled download not queued")
			continue
		}
		s.prefs.RemoveScheduledDownload(sd.ID)
		promoted++
		s.log.Info().Str("id", sd.ID).Int64("queue_id", item.ID).Str("url", sd.Config.URL).Msg("scheduled download queued")
	}
	return promoted
}
