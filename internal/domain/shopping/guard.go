package shopping

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultSuppressWindow = 5 * time.Second
	DefaultCleanupDelay   = 10 * time.Second
)

// GuardDecision is the outcome of consulting the archive guard for a name.
type GuardDecision int

const (
	GuardNone GuardDecision = iota
	// GuardAcquired: no live slot existed, the caller owns a fresh one and
	// should write the history entry.
	GuardAcquired
	// GuardSuppressed: the name was archived less than the suppress window ago.
	GuardSuppressed
	// GuardCooling: the suppress window has passed but the slot has not been
	// cleaned up yet, so the name is still not reusable.
	GuardCooling
)

func (d GuardDecision) String() string {
	switch d {
	case GuardAcquired:
		return "acquired"
	case GuardSuppressed:
		return "suppressed"
	case GuardCooling:
		return "cooling"
	default:
		return "none"
	}
}

type guardSlot struct {
	archivedAt time.Time
	expiresAt  time.Time
}

// ArchiveGuard suppresses repeated archival of the same item name within a
// short period. It is process-local and best effort.
type ArchiveGuard struct {
	mu             sync.Mutex
	slots          map[string]guardSlot
	suppressWindow time.Duration
	cleanupDelay   time.Duration
}

func NewArchiveGuard(suppressWindow, cleanupDelay time.Duration) *ArchiveGuard {
	if suppressWindow <= 0 {
		suppressWindow = DefaultSuppressWindow
	}
	if cleanupDelay < suppressWindow {
		cleanupDelay = suppressWindow
	}
	return &ArchiveGuard{
		slots:          make(map[string]guardSlot),
		suppressWindow: suppressWindow,
		cleanupDelay:   cleanupDelay,
	}
}

// Check classifies name at now and takes the slot when it is free. The
// check and the set happen under one lock.
func (g *ArchiveGuard) Check(name string, now time.Time) GuardDecision {
	key := NormalizeName(name)

	g.mu.Lock()
	defer g.mu.Unlock()

	if slot, ok := g.slots[key]; ok && now.Before(slot.expiresAt) {
		if now.Sub(slot.archivedAt) < g.suppressWindow {
			return GuardSuppressed
		}
		return GuardCooling
	}

	g.slots[key] = guardSlot{archivedAt: now, expiresAt: now.Add(g.cleanupDelay)}
	return GuardAcquired
}

// Release drops the slot taken for name at archivedAt. A slot that was
// re-acquired since then is left alone.
func (g *ArchiveGuard) Release(name string, archivedAt time.Time) {
	key := NormalizeName(name)

	g.mu.Lock()
	if slot, ok := g.slots[key]; ok && slot.archivedAt.Equal(archivedAt) {
		delete(g.slots, key)
	}
	g.mu.Unlock()
}

// Sweep removes every slot whose cleanup delay has elapsed at now.
func (g *ArchiveGuard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, slot := range g.slots {
		if !now.Before(slot.expiresAt) {
			delete(g.slots, key)
			removed++
		}
	}
	return removed
}

func (g *ArchiveGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

// Run sweeps on every tick until ctx is done. observe, when set, receives
// the number of live slots after each sweep.
func (g *ArchiveGuard) Run(ctx context.Context, interval time.Duration, observe func(remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			g.Sweep(tick)
			if observe != nil {
				observe(g.Len())
			}
		}
	}
}
