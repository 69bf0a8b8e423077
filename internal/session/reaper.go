package session

import (
	"context"
	"time"

	"scimoveis_backend/platform/logger"
)

const (
	defaultReaperInterval = time.Hour
	defaultMaxIdle        = 6 * time.Hour
)

// Reaper periodically evicts idle chat sessions so abandoned conversations
// do not accumulate in memory.
type Reaper struct {
	store    *Store
	log      *logger.Logger
	interval time.Duration
	maxIdle  time.Duration
}

func NewReaper(store *Store, log *logger.Logger, interval, maxIdle time.Duration) *Reaper {
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}

	return &Reaper{
		store:    store,
		log:      log,
		interval: interval,
		maxIdle:  maxIdle,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	if r == nil || r.store == nil {
		return
	}

	r.sweep()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	evicted := r.store.EvictIdle(r.maxIdle)
	if evicted > 0 {
		r.log.Info("evicted idle chat sessions", "evicted", evicted, "remaining", r.store.Len())
	}
}
