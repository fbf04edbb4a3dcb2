package shopping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var guardEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestArchiveGuardTwoPhaseCooldown(t *testing.T) {
	g := NewArchiveGuard(5*time.Second, 10*time.Second)

	assert.Equal(t, GuardAcquired, g.Check("Milk", guardEpoch))
	assert.Equal(t, GuardSuppressed, g.Check(" milk ", guardEpoch.Add(time.Second)))
	assert.Equal(t, GuardSuppressed, g.Check("MILK", guardEpoch.Add(4999*time.Millisecond)))
	assert.Equal(t, GuardCooling, g.Check("milk", guardEpoch.Add(5*time.Second)))
	assert.Equal(t, GuardCooling, g.Check("milk", guardEpoch.Add(9999*time.Millisecond)))
	assert.Equal(t, GuardAcquired, g.Check("milk", guardEpoch.Add(10*time.Second)))
}

func TestArchiveGuardKeysAreIndependent(t *testing.T) {
	g := NewArchiveGuard(5*time.Second, 10*time.Second)

	assert.Equal(t, GuardAcquired, g.Check("milk", guardEpoch))
	assert.Equal(t, GuardAcquired, g.Check("bread", guardEpoch))
	assert.Equal(t, 2, g.Len())
}

func TestArchiveGuardSweep(t *testing.T) {
	g := NewArchiveGuard(5*time.Second, 10*time.Second)
	g.Check("milk", guardEpoch)
	g.Check("bread", guardEpoch.Add(3*time.Second))

	assert.Equal(t, 0, g.Sweep(guardEpoch.Add(9*time.Second)))
	assert.Equal(t, 1, g.Sweep(guardEpoch.Add(10*time.Second)))
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 1, g.Sweep(guardEpoch.Add(13*time.Second)))
	assert.Equal(t, 0, g.Len())
}

func TestArchiveGuardReleaseOnlyOwnSlot(t *testing.T) {
	g := NewArchiveGuard(5*time.Second, 10*time.Second)
	g.Check("milk", guardEpoch)

	g.Release("milk", guardEpoch.Add(time.Second))
	assert.Equal(t, 1, g.Len())

	g.Release("Milk", guardEpoch)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, GuardAcquired, g.Check("milk", guardEpoch.Add(time.Second)))
}

func TestArchiveGuardDefaults(t *testing.T) {
	g := NewArchiveGuard(0, 0)
	assert.Equal(t, DefaultSuppressWindow, g.suppressWindow)
	assert.Equal(t, DefaultSuppressWindow, g.cleanupDelay)
}

func TestArchiveGuardRunSweepsUntilCancelled(t *testing.T) {
	g := NewArchiveGuard(time.Millisecond, time.Millisecond)
	g.Check("milk", time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx, 5*time.Millisecond, nil)
		close(done)
	}()

	assert.Eventually(t, func() bool { return g.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestGuardDecisionString(t *testing.T) {
	assert.Equal(t, "acquired", GuardAcquired.String())
	assert.Equal(t, "suppressed", GuardSuppressed.String())
	assert.Equal(t, "cooling", GuardCooling.String())
	assert.Equal(t, "none", GuardNone.String())
}
