package shopping

import (
	"strings"
	"time"
)

// ActiveListID is the well-known id of the single active list record.
const ActiveListID = "active"

const (
	DefaultQuantity = 1
	DefaultCategory = "general"
	ImportedBy      = "imported"
)

type Item struct {
	ID          string     `json:"id" bson:"id"`
	Name        string     `json:"name" bson:"name"`
	Quantity    int        `json:"quantity" bson:"quantity"`
	Category    string     `json:"category" bson:"category"`
	Comment     string     `json:"comment" bson:"comment"`
	Purchased   bool       `json:"purchased" bson:"purchased"`
	AddedBy     string     `json:"addedBy" bson:"added_by"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	PurchasedAt *time.Time `json:"purchasedAt" bson:"purchased_at"`
}

// NormalizedName is the case-insensitive key used for duplicate detection.
func (i Item) NormalizedName() string {
	return NormalizeName(i.Name)
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetPurchased keeps Purchased and PurchasedAt in lockstep.
func (i *Item) SetPurchased(purchased bool, now time.Time) {
	i.Purchased = purchased
	if purchased {
		at := now
		i.PurchasedAt = &at
		return
	}
	i.PurchasedAt = nil
}

type ActiveList struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Items        []Item    `gorm:"serializer:json;type:jsonb;not null" json:"items"`
	Version      int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `gorm:"column:last_modified" json:"lastModified"`
}

func (ActiveList) TableName() string { return "active_lists" }

// IndexOf returns the position of the item with the given id, or -1.
func (l *ActiveList) IndexOf(itemID string) int {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// HasName reports whether an item other than exceptID already uses name.
func (l *ActiveList) HasName(name, exceptID string) bool {
	key := NormalizeName(name)
	for _, item := range l.Items {
		if item.ID != exceptID && item.NormalizedName() == key {
			return true
		}
	}
	return false
}

func (l *ActiveList) Clone() ActiveList {
	clone := *l
	clone.Items = make([]Item, len(l.Items))
	copy(clone.Items, l.Items)
	return clone
}

type HistoryEntry struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Items       []Item    `gorm:"serializer:json;type:jsonb;not null" json:"items"`
	CompletedAt time.Time `gorm:"index;not null" json:"completedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (HistoryEntry) TableName() string { return "history_entries" }

type NewItemInput struct {
	Name     string
	Quantity int
	Category string
	AddedBy  string
	Comment  string
}

type UpdateItemInput struct {
	ItemID    string
	Name      *string
	Quantity  *int
	Category  *string
	Comment   *string
	Purchased *bool
}

func (in UpdateItemInput) empty() bool {
	return in.Name == nil && in.Quantity == nil && in.Category == nil && in.Comment == nil && in.Purchased == nil
}

// ArchiveResult describes what MarkPurchased did with the archive write.
type ArchiveResult struct {
	List     ActiveList
	Entry    *HistoryEntry
	Decision GuardDecision
}
