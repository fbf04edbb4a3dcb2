package inmemory

import (
	"context"
	"slices"
	"sync"

	shoppingdomain "shoplist-go/internal/domain/shopping"
)

// ShoppingRepository keeps the active list and history in process memory.
// Every read returns a copy, so callers may mutate what they get.
type ShoppingRepository struct {
	mu      sync.RWMutex
	list    *shoppingdomain.ActiveList
	history map[string]shoppingdomain.HistoryEntry
}

func NewShoppingRepository() *ShoppingRepository {
	return &ShoppingRepository{
		history: make(map[string]shoppingdomain.HistoryEntry),
	}
}

func (r *ShoppingRepository) GetActiveList(ctx context.Context) (*shoppingdomain.ActiveList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.list == nil {
		return nil, shoppingdomain.ErrActiveListNotFound
	}
	clone := r.list.Clone()
	return &clone, nil
}

func (r *ShoppingRepository) CreateActiveList(ctx context.Context, list *shoppingdomain.ActiveList) (*shoppingdomain.ActiveList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.list == nil {
		stored := list.Clone()
		r.list = &stored
	}
	clone := r.list.Clone()
	return &clone, nil
}

func (r *ShoppingRepository) SaveActiveList(ctx context.Context, list *shoppingdomain.ActiveList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.list == nil {
		return shoppingdomain.ErrActiveListNotFound
	}
	if r.list.Version != list.Version {
		return shoppingdomain.ErrVersionConflict
	}

	list.Version++
	stored := list.Clone()
	r.list = &stored
	return nil
}

func (r *ShoppingRepository) ListHistory(ctx context.Context) ([]shoppingdomain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]shoppingdomain.HistoryEntry, 0, len(r.history))
	for _, entry := range r.history {
		entries = append(entries, cloneEntry(entry))
	}
	slices.SortStableFunc(entries, func(a, b shoppingdomain.HistoryEntry) int {
		if c := b.CompletedAt.Compare(a.CompletedAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries, nil
}

func (r *ShoppingRepository) GetHistoryEntry(ctx context.Context, id string) (*shoppingdomain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.history[id]
	if !ok {
		return nil, shoppingdomain.ErrHistoryEntryNotFound
	}
	clone := cloneEntry(entry)
	return &clone, nil
}

func (r *ShoppingRepository) CreateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	r.mu.Lock()
	r.history[entry.ID] = cloneEntry(*entry)
	r.mu.Unlock()
	return nil
}

func (r *ShoppingRepository) UpdateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.history[entry.ID]; !ok {
		return shoppingdomain.ErrHistoryEntryNotFound
	}
	r.history[entry.ID] = cloneEntry(*entry)
	return nil
}

func (r *ShoppingRepository) DeleteHistoryEntry(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.history[id]; !ok {
		return false, nil
	}
	delete(r.history, id)
	return true, nil
}

func (r *ShoppingRepository) DeleteAllHistory(ctx context.Context) error {
	r.mu.Lock()
	r.history = make(map[string]shoppingdomain.HistoryEntry)
	r.mu.Unlock()
	return nil
}

func cloneEntry(entry shoppingdomain.HistoryEntry) shoppingdomain.HistoryEntry {
	entry.Items = slices.Clone(entry.Items)
	if entry.Items == nil {
		entry.Items = []shoppingdomain.Item{}
	}
	return entry
}
