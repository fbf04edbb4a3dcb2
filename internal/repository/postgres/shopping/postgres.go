package shopping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	shoppingdomain "shoplist-go/internal/domain/shopping"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetActiveList(ctx context.Context) (*shoppingdomain.ActiveList, error) {
	var list shoppingdomain.ActiveList
	if err := r.db.WithContext(ctx).
		Where("id = ?", shoppingdomain.ActiveListID).
		First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shoppingdomain.ErrActiveListNotFound
		}
		return nil, err
	}
	if list.Items == nil {
		list.Items = []shoppingdomain.Item{}
	}
	return &list, nil
}

func (r *PostgresRepository) CreateActiveList(ctx context.Context, list *shoppingdomain.ActiveList) (*shoppingdomain.ActiveList, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(list).Error; err != nil {
		return nil, err
	}
	return r.GetActiveList(ctx)
}

func (r *PostgresRepository) SaveActiveList(ctx context.Context, list *shoppingdomain.ActiveList) error {
	next := *list
	next.Version = list.Version + 1

	result := r.db.WithContext(ctx).
		Model(&shoppingdomain.ActiveList{}).
		Where("id = ? AND version = ?", list.ID, list.Version).
		Select("items", "version", "last_modified").
		Updates(&next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&shoppingdomain.ActiveList{}).
			Where("id = ?", list.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shoppingdomain.ErrActiveListNotFound
		}
		return shoppingdomain.ErrVersionConflict
	}

	list.Version = next.Version
	return nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context) ([]shoppingdomain.HistoryEntry, error) {
	var entries []shoppingdomain.HistoryEntry
	if err := r.db.WithContext(ctx).
		Order("completed_at desc, created_at desc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) GetHistoryEntry(ctx context.Context, id string) (*shoppingdomain.HistoryEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shoppingdomain.ErrHistoryEntryNotFound
	}

	var entry shoppingdomain.HistoryEntry
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shoppingdomain.ErrHistoryEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresRepository) CreateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *PostgresRepository) UpdateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	result := r.db.WithContext(ctx).
		Model(&shoppingdomain.HistoryEntry{}).
		Where("id = ?", entry.ID).
		Select("items").
		Updates(entry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shoppingdomain.ErrHistoryEntryNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteHistoryEntry(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	result := r.db.WithContext(ctx).Delete(&shoppingdomain.HistoryEntry{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) DeleteAllHistory(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("DELETE FROM history_entries").Error
}
