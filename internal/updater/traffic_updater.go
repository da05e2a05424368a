package updater

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/joeshaw/bikeshare-traffic/internal/store"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
)

// TrafficUpdater recomputes the store's current snapshot when the selected
// time changes. Submissions arriving faster than recomputation are
// coalesced so only the most recent one is computed.
type TrafficUpdater struct {
	store *store.Store

	mu      sync.Mutex
	latest  traffic.TimeFilter
	pending bool
	wake    chan struct{}

	recomputations atomic.Int64
}

// NewTrafficUpdater creates a new traffic updater
func NewTrafficUpdater(store *store.Store) *TrafficUpdater {
	return &TrafficUpdater{
		store: store,
		wake:  make(chan struct{}, 1),
	}
}

// Submit records a new time filter. It never blocks; a filter that has
// not been picked up yet is replaced.
func (u *TrafficUpdater) Submit(f traffic.TimeFilter) error {
	if err := f.Validate(); err != nil {
		return err
	}

	u.mu.Lock()
	u.latest = f
	u.pending = true
	u.mu.Unlock()

	select {
	case u.wake <- struct{}{}:
	default:
	}
	return nil
}

// Update computes traffic for f and publishes it as the current snapshot
func (u *TrafficUpdater) Update(f traffic.TimeFilter) error {
	res, err := u.store.Traffic(f)
	if err != nil {
		return fmt.Errorf("failed to compute traffic for %s: %w", f, err)
	}
	u.store.SetCurrent(res)
	u.recomputations.Add(1)
	return nil
}

// Run processes submissions until ctx is cancelled
func (u *TrafficUpdater) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.wake:
		}

		u.mu.Lock()
		f, pending := u.latest, u.pending
		u.pending = false
		u.mu.Unlock()

		if !pending {
			continue
		}
		if err := u.Update(f); err != nil {
			log.Printf("Failed to update traffic: %v", err)
		}
	}
}

// Recomputations returns how many snapshots have been published
func (u *TrafficUpdater) Recomputations() int64 {
	return u.recomputations.Load()
}
