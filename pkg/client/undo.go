package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultUndoWindow    = 5 * time.Second
	DefaultSweepInterval = time.Second
)

var ErrItemNotInList = errors.New("item not in active list")

// Rollback reverses one recorded action.
type Rollback func(ctx context.Context) error

// UndoAction describes a pending undo handle.
type UndoAction struct {
	ID        string
	Kind      string
	Data      any
	ExpiresAt time.Time
}

type undoRecord struct {
	action   UndoAction
	rollback Rollback
}

type UndoOption func(*UndoStore)

func WithUndoWindow(window time.Duration) UndoOption {
	return func(s *UndoStore) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithSweepInterval(interval time.Duration) UndoOption {
	return func(s *UndoStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

func WithUndoClock(now func() time.Time) UndoOption {
	return func(s *UndoStore) {
		if now != nil {
			s.now = now
		}
	}
}

// UndoStore holds time-boxed rollbacks for recent destructive actions.
// Each handle runs its rollback at most once.
type UndoStore struct {
	mu            sync.Mutex
	records       map[string]undoRecord
	window        time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewUndoStore(opts ...UndoOption) *UndoStore {
	s := &UndoStore{
		records:       make(map[string]undoRecord),
		window:        DefaultUndoWindow,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record stores rollback under a new handle that expires after the undo window.
func (s *UndoStore) Record(kind string, data any, rollback Rollback) string {
	id := "undo-" + uuid.NewString()

	s.mu.Lock()
	s.records[id] = undoRecord{
		action: UndoAction{
			ID:        id,
			Kind:      kind,
			Data:      data,
			ExpiresAt: s.now().Add(s.window),
		},
		rollback: rollback,
	}
	s.mu.Unlock()
	return id
}

// Undo runs the rollback for id. Unknown, expired or already used handles
// return false with no error. The handle is discarded before the rollback
// runs, so a failed rollback cannot be retried through it.
func (s *UndoStore) Undo(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	record, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	now := s.now()
	s.mu.Unlock()

	if !ok || now.After(record.action.ExpiresAt) {
		return false, nil
	}
	return true, record.rollback(ctx)
}

// Discard drops id without running its rollback.
func (s *UndoStore) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	delete(s.records, id)
	return ok
}

// Pending lists live handles, soonest expiry first.
func (s *UndoStore) Pending() []UndoAction {
	s.mu.Lock()
	actions := make([]UndoAction, 0, len(s.records))
	for _, record := range s.records {
		actions = append(actions, record.action)
	}
	s.mu.Unlock()

	slices.SortFunc(actions, func(a, b UndoAction) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	return actions
}

// Sweep discards every handle that expired before now.
func (s *UndoStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, record := range s.records {
		if now.After(record.action.ExpiresAt) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

func (s *UndoStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Run sweeps on the store's interval until ctx is done.
func (s *UndoStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// PurchaseWithUndo marks itemID purchased and records an undo handle whose
// rollback restores the item with its previous attributes.
func (c *Client) PurchaseWithUndo(ctx context.Context, store *UndoStore, itemID string) (string, *ActiveList, error) {
	before, err := c.ActiveList(ctx)
	if err != nil {
		return "", nil, err
	}
	idx := before.IndexOf(itemID)
	if idx < 0 {
		return "", nil, ErrItemNotInList
	}
	item := before.Items[idx]

	after, err := c.MarkPurchased(ctx, itemID)
	if err != nil {
		return "", nil, err
	}

	id := store.Record("purchase", item, func(ctx context.Context) error {
		_, err := c.RestoreItem(ctx, NewItemFrom(item))
		return err
	})
	return id, after, nil
}

// DeleteWithUndo removes itemID and records an undo handle that restores it.
func (c *Client) DeleteWithUndo(ctx context.Context, store *UndoStore, itemID string) (string, *ActiveList, error) {
	before, err := c.ActiveList(ctx)
	if err != nil {
		return "", nil, err
	}
	idx := before.IndexOf(itemID)
	if idx < 0 {
		return "", nil, ErrItemNotInList
	}
	item := before.Items[idx]

	after, err := c.DeleteItem(ctx, itemID)
	if err != nil {
		return "", nil, err
	}

	id := store.Record("delete", item, func(ctx context.Context) error {
		_, err := c.RestoreItem(ctx, NewItemFrom(item))
		return err
	})
	return id, after, nil
}
