package shopping

import "context"

type Repository interface {
	// GetActiveList returns ErrActiveListNotFound when the record is absent.
	GetActiveList(ctx context.Context) (*ActiveList, error)
	// CreateActiveList inserts the record if it does not exist yet and
	// returns whatever is stored afterwards.
	CreateActiveList(ctx context.Context, list *ActiveList) (*ActiveList, error)
	// SaveActiveList persists list if the stored version equals list.Version,
	// then increments list.Version. A mismatch yields ErrVersionConflict.
	SaveActiveList(ctx context.Context, list *ActiveList) error

	ListHistory(ctx context.Context) ([]HistoryEntry, error)
	GetHistoryEntry(ctx context.Context, id string) (*HistoryEntry, error)
	CreateHistoryEntry(ctx context.Context, entry *HistoryEntry) error
	UpdateHistoryEntry(ctx context.Context, entry *HistoryEntry) error
	DeleteHistoryEntry(ctx context.Context, id string) (bool, error)
	DeleteAllHistory(ctx context.Context) error
}
