package shopping

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"shoplist-go/pkg/logger"
)

const maxSaveAttempts = 3

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithUniqueNames rejects active items whose names collide case-insensitively.
func WithUniqueNames(enabled bool) Option {
	return func(s *Service) {
		s.uniqueNames = enabled
	}
}

type Service struct {
	repo        Repository
	guard       *ArchiveGuard
	publisher   Publisher
	metrics     Metrics
	log         logger.Logger
	now         func() time.Time
	newID       func() string
	uniqueNames bool
}

func NewService(repo Repository, guard *ArchiveGuard, opts ...Option) *Service {
	if guard == nil {
		guard = NewArchiveGuard(DefaultSuppressWindow, DefaultCleanupDelay)
	}
	s := &Service{
		repo:        repo,
		guard:       guard,
		publisher:   noopPublisher{},
		metrics:     noopMetrics{},
		log:         logger.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		uniqueNames: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureActiveList returns the active list, creating an empty one if absent.
func (s *Service) EnsureActiveList(ctx context.Context) (*ActiveList, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err == nil {
		return normalizeList(list), nil
	}
	if !errors.Is(err, ErrActiveListNotFound) {
		return nil, err
	}

	now := s.now()
	list, err = s.repo.CreateActiveList(ctx, &ActiveList{
		ID:           ActiveListID,
		Items:        []Item{},
		CreatedAt:    now,
		LastModified: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create active list: %w", err)
	}
	s.log.Info("shopping.ensure_list: active list created")
	return normalizeList(list), nil
}

func (s *Service) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	entries, err := s.repo.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeHistory(entries), nil
}

func (s *Service) AddItem(ctx context.Context, input NewItemInput) (*ActiveList, error) {
	return s.insertItem(ctx, "add_item", input)
}

// RestoreItem re-inserts a previously removed item with a fresh id and
// creation time. It is the rollback target of client-side undo.
func (s *Service) RestoreItem(ctx context.Context, input NewItemInput) (*ActiveList, error) {
	return s.insertItem(ctx, "restore_item", input)
}

func (s *Service) insertItem(ctx context.Context, op string, input NewItemInput) (*ActiveList, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	addedBy := strings.TrimSpace(input.AddedBy)
	if addedBy == "" {
		return nil, invalid("addedBy", "addedBy is required")
	}
	quantity := input.Quantity
	if quantity < 0 {
		return nil, invalid("quantity", "quantity must be positive")
	}
	if quantity == 0 {
		quantity = DefaultQuantity
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = DefaultCategory
	}

	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, op, list, func(l *ActiveList, now time.Time) error {
		if s.uniqueNames && l.HasName(name, "") {
			return ErrDuplicateItem
		}
		l.Items = append(l.Items, Item{
			ID:        s.newID(),
			Name:      name,
			Quantity:  quantity,
			Category:  category,
			Comment:   input.Comment,
			AddedBy:   addedBy,
			CreatedAt: now,
		})
		return nil
	})
}

// UpdateItem applies a partial update. Setting purchased to true routes the
// item through the archival workflow instead of flagging it in place. An item
// already flagged purchased is not archived again; the other fields are still
// applied.
func (s *Service) UpdateItem(ctx context.Context, input UpdateItemInput) (*ActiveList, error) {
	if input.empty() {
		return nil, invalid("body", "no fields to update")
	}
	patch, err := s.itemPatch(input)
	if err != nil {
		return nil, err
	}

	if input.Purchased != nil && *input.Purchased {
		result, err := s.archiveItem(ctx, input.ItemID, patch)
		if err != nil {
			return nil, err
		}
		return &result.List, nil
	}

	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}
	if list.IndexOf(input.ItemID) < 0 {
		return nil, ErrItemNotFound
	}

	return s.commit(ctx, "update_item", list, func(l *ActiveList, now time.Time) error {
		idx := l.IndexOf(input.ItemID)
		if idx < 0 {
			return ErrItemNotFound
		}
		item := l.Items[idx]
		if err := patch(l, &item); err != nil {
			return err
		}
		if input.Purchased != nil {
			item.SetPurchased(false, now)
		}
		l.Items[idx] = item
		return nil
	})
}

func (s *Service) itemPatch(input UpdateItemInput) (func(*ActiveList, *Item) error, error) {
	var name string
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name", "name is required")
		}
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, invalid("quantity", "quantity must be positive")
	}

	return func(l *ActiveList, item *Item) error {
		if input.Name != nil {
			if s.uniqueNames && l.HasName(name, item.ID) {
				return ErrDuplicateItem
			}
			item.Name = name
		}
		if input.Quantity != nil {
			item.Quantity = *input.Quantity
		}
		if input.Category != nil {
			item.Category = strings.TrimSpace(*input.Category)
			if item.Category == "" {
				item.Category = DefaultCategory
			}
		}
		if input.Comment != nil {
			item.Comment = *input.Comment
		}
		return nil
	}, nil
}

// MarkPurchased archives the item into history (unless the guard suppresses
// the write) and removes it from the active list.
func (s *Service) MarkPurchased(ctx context.Context, itemID string) (*ArchiveResult, error) {
	return s.archiveItem(ctx, itemID, nil)
}

func (s *Service) archiveItem(ctx context.Context, itemID string, patch func(*ActiveList, *Item) error) (*ArchiveResult, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}
	normalizeList(list)

	idx := list.IndexOf(itemID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	item := list.Items[idx]
	if patch != nil {
		if err := patch(list, &item); err != nil {
			return nil, err
		}
	}
	if item.Purchased {
		s.log.Debug("shopping.mark_purchased: item already purchased", "item_id", itemID)
		if patch == nil {
			return &ArchiveResult{List: *list, Decision: GuardNone}, nil
		}
		updated, err := s.commit(ctx, "update_item", list, func(l *ActiveList, _ time.Time) error {
			i := l.IndexOf(itemID)
			if i < 0 {
				return ErrItemNotFound
			}
			edited := l.Items[i]
			if err := patch(l, &edited); err != nil {
				return err
			}
			l.Items[i] = edited
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &ArchiveResult{List: *updated, Decision: GuardNone}, nil
	}

	now := s.now()
	decision := s.guard.Check(item.Name, now)
	s.metrics.ObserveArchive(decision)

	var entry *HistoryEntry
	if decision == GuardAcquired {
		snapshot := item
		snapshot.SetPurchased(true, now)
		entry = &HistoryEntry{
			ID:          s.newID(),
			Items:       []Item{snapshot},
			CompletedAt: now,
			CreatedAt:   now,
		}
		if err := s.repo.CreateHistoryEntry(ctx, entry); err != nil {
			s.guard.Release(item.Name, now)
			return nil, fmt.Errorf("create history entry: %w", err)
		}
		s.log.Info("shopping.mark_purchased: item archived", "item_id", itemID, "name", item.Name, "history_id", entry.ID)
	} else {
		s.log.Info("shopping.mark_purchased: duplicate archive skipped", "item_id", itemID, "name", item.Name, "guard", decision.String())
	}

	updated, err := s.commit(ctx, "mark_purchased", list, func(l *ActiveList, _ time.Time) error {
		if i := l.IndexOf(itemID); i >= 0 {
			l.Items = slices.Delete(l.Items, i, i+1)
		}
		return nil
	})
	if err != nil {
		if entry != nil {
			s.log.InternalError("shopping.mark_purchased: list save failed after archive", err, "item_id", itemID, "history_id", entry.ID)
		}
		return nil, err
	}

	if entry != nil {
		s.publishHistory(ctx)
	}
	return &ArchiveResult{List: *updated, Entry: entry, Decision: decision}, nil
}

// DeleteItem removes an item without archiving it.
func (s *Service) DeleteItem(ctx context.Context, itemID string) (*ActiveList, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}
	if list.IndexOf(itemID) < 0 {
		return nil, ErrItemNotFound
	}

	return s.commit(ctx, "delete_item", list, func(l *ActiveList, _ time.Time) error {
		if i := l.IndexOf(itemID); i >= 0 {
			l.Items = slices.Delete(l.Items, i, i+1)
		}
		return nil
	})
}

// CopyFromHistory re-adds every item of a history entry as a new active item
// attributed to ImportedBy.
func (s *Service) CopyFromHistory(ctx context.Context, historyID string) (*ActiveList, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.GetHistoryEntry(ctx, historyID)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, "copy_from_history", list, func(l *ActiveList, now time.Time) error {
		for _, source := range entry.Items {
			if s.uniqueNames && l.HasName(source.Name, "") {
				continue
			}
			l.Items = append(l.Items, Item{
				ID:        s.newID(),
				Name:      source.Name,
				Quantity:  source.Quantity,
				Category:  source.Category,
				AddedBy:   ImportedBy,
				CreatedAt: now,
			})
		}
		return nil
	})
}

// ArchiveList moves the whole active list into one history entry.
func (s *Service) ArchiveList(ctx context.Context) (*HistoryEntry, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		if errors.Is(err, ErrActiveListNotFound) {
			return nil, ErrNothingToArchive
		}
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, ErrNothingToArchive
	}

	now := s.now()
	snapshot := list.Clone()
	archived := make(map[string]struct{}, len(snapshot.Items))
	for _, item := range snapshot.Items {
		archived[item.ID] = struct{}{}
	}

	entry := &HistoryEntry{
		ID:          s.newID(),
		Items:       snapshot.Items,
		CompletedAt: now,
		CreatedAt:   now,
	}
	if err := s.repo.CreateHistoryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create history entry: %w", err)
	}

	_, err = s.commit(ctx, "archive_list", list, func(l *ActiveList, _ time.Time) error {
		l.Items = slices.DeleteFunc(l.Items, func(item Item) bool {
			_, ok := archived[item.ID]
			return ok
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("shopping.archive_list: list archived", "history_id", entry.ID, "items", len(entry.Items))
	s.publishHistory(ctx)
	return entry, nil
}

func (s *Service) ClearList(ctx context.Context) (*ActiveList, error) {
	list, err := s.repo.GetActiveList(ctx)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, "clear_list", list, func(l *ActiveList, _ time.Time) error {
		l.Items = []Item{}
		return nil
	})
}

func (s *Service) DeleteHistoryEntry(ctx context.Context, historyID string) ([]HistoryEntry, error) {
	deleted, err := s.repo.DeleteHistoryEntry(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrHistoryEntryNotFound
	}
	s.metrics.ObserveMutation("delete_history_entry")
	return s.publishHistory(ctx)
}

func (s *Service) DeleteHistoryItem(ctx context.Context, historyID, itemID string) ([]HistoryEntry, error) {
	entry, err := s.repo.GetHistoryEntry(ctx, historyID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(entry.Items, func(item Item) bool { return item.ID == itemID })
	if idx < 0 {
		return nil, ErrHistoryItemNotFound
	}
	entry.Items = slices.Delete(entry.Items, idx, idx+1)
	if err := s.repo.UpdateHistoryEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation("delete_history_item")
	return s.publishHistory(ctx)
}

func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.repo.DeleteAllHistory(ctx); err != nil {
		return err
	}
	s.metrics.ObserveMutation("clear_history")
	s.publish(ctx, TopicHistoryUpdated, HistoryUpdated{History: []HistoryEntry{}})
	return nil
}

// commit applies mutate to list and saves it. On a version conflict the list
// is re-read and mutate is applied again, so mutate must not have side
// effects outside the list.
func (s *Service) commit(ctx context.Context, op string, list *ActiveList, mutate func(*ActiveList, time.Time) error) (*ActiveList, error) {
	normalizeList(list)
	for attempt := 1; ; attempt++ {
		now := s.now()
		if err := mutate(list, now); err != nil {
			return nil, err
		}
		list.LastModified = now

		err := s.repo.SaveActiveList(ctx, list)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("save active list: %w", err)
		}
		s.metrics.ObserveVersionConflict(op)
		if attempt >= maxSaveAttempts {
			return nil, err
		}
		s.log.Debug("shopping.commit: version conflict, retrying", "op", op, "attempt", attempt)

		list, err = s.repo.GetActiveList(ctx)
		if err != nil {
			return nil, err
		}
		normalizeList(list)
	}

	s.metrics.ObserveMutation(op)
	s.publish(ctx, TopicListUpdated, ListUpdated{ActiveList: list.Clone()})
	return list, nil
}

func (s *Service) publishHistory(ctx context.Context) ([]HistoryEntry, error) {
	history, err := s.ListHistory(ctx)
	if err != nil {
		s.log.InternalError("shopping.publish: list history failed", err)
		return nil, err
	}
	s.publish(ctx, TopicHistoryUpdated, HistoryUpdated{History: history})
	return history, nil
}

func (s *Service) publish(ctx context.Context, topic Topic, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.log.InternalError("shopping.publish: publish failed", err, "topic", string(topic))
	}
}

func normalizeList(list *ActiveList) *ActiveList {
	if list.Items == nil {
		list.Items = []Item{}
	}
	return list
}

func normalizeHistory(entries []HistoryEntry) []HistoryEntry {
	if entries == nil {
		return []HistoryEntry{}
	}
	for i := range entries {
		if entries[i].Items == nil {
			entries[i].Items = []Item{}
		}
	}
	return entries
}
