package shopping

import "errors"

var (
	ErrActiveListNotFound   = errors.New("active list not found")
	ErrItemNotFound         = errors.New("item not found")
	ErrHistoryEntryNotFound = errors.New("history entry not found")
	ErrHistoryItemNotFound  = errors.New("history item not found")
	ErrNothingToArchive     = errors.New("nothing to archive")
	ErrDuplicateItem        = errors.New("item with this name already exists")
	ErrVersionConflict      = errors.New("active list was modified concurrently")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
