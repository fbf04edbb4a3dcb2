package client

import (
	"encoding/json"
	"fmt"

	shoppingdomain "shoplist-go/internal/domain/shopping"
)

type (
	Item         = shoppingdomain.Item
	ActiveList   = shoppingdomain.ActiveList
	HistoryEntry = shoppingdomain.HistoryEntry
)

const (
	EventListUpdated    = string(shoppingdomain.TopicListUpdated)
	EventHistoryUpdated = string(shoppingdomain.TopicHistoryUpdated)
)

// NewItem is the body of add and restore requests.
type NewItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
	Category string `json:"category,omitempty"`
	AddedBy  string `json:"addedBy"`
	Comment  string `json:"comment,omitempty"`
}

// NewItemFrom copies the attributes a restore needs from item.
func NewItemFrom(item Item) NewItem {
	return NewItem{
		Name:     item.Name,
		Quantity: item.Quantity,
		Category: item.Category,
		AddedBy:  item.AddedBy,
		Comment:  item.Comment,
	}
}

// ItemPatch is a partial update; nil fields are left unchanged.
type ItemPatch struct {
	Name      *string `json:"name,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
	Category  *string `json:"category,omitempty"`
	Comment   *string `json:"comment,omitempty"`
	Purchased *bool   `json:"purchased,omitempty"`
}

// Event is one message received from the server's WebSocket stream.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (e Event) ActiveList() (*ActiveList, error) {
	if e.Event != EventListUpdated {
		return nil, fmt.Errorf("event %q carries no active list", e.Event)
	}
	var payload shoppingdomain.ListUpdated
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Event, err)
	}
	return &payload.ActiveList, nil
}

func (e Event) History() ([]HistoryEntry, error) {
	if e.Event != EventHistoryUpdated {
		return nil, fmt.Errorf("event %q carries no history", e.Event)
	}
	var payload shoppingdomain.HistoryUpdated
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Event, err)
	}
	return payload.History, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("shoplist api: status %d", e.Status)
	}
	return fmt.Sprintf("shoplist api: %s (%d): %s", e.Code, e.Status, e.Message)
}
