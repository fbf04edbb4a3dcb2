package shopping

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	shoppingdomain "shoplist-go/internal/domain/shopping"
)

const (
	activeListsCollection = "active_lists"
	historyCollection     = "history_entries"
)

type activeListDocument struct {
	ID           string                `bson:"_id"`
	Items        []shoppingdomain.Item `bson:"items"`
	Version      int64                 `bson:"version"`
	CreatedAt    time.Time             `bson:"created_at"`
	LastModified time.Time             `bson:"last_modified"`
}

func (d activeListDocument) toDomain() *shoppingdomain.ActiveList {
	items := d.Items
	if items == nil {
		items = []shoppingdomain.Item{}
	}
	return &shoppingdomain.ActiveList{
		ID:           d.ID,
		Items:        items,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		LastModified: d.LastModified,
	}
}

type historyDocument struct {
	ID          string                `bson:"_id"`
	Items       []shoppingdomain.Item `bson:"items"`
	CompletedAt time.Time             `bson:"completed_at"`
	CreatedAt   time.Time             `bson:"created_at"`
}

func (d historyDocument) toDomain() shoppingdomain.HistoryEntry {
	items := d.Items
	if items == nil {
		items = []shoppingdomain.Item{}
	}
	return shoppingdomain.HistoryEntry{
		ID:          d.ID,
		Items:       items,
		CompletedAt: d.CompletedAt,
		CreatedAt:   d.CreatedAt,
	}
}

type MongoRepository struct {
	lists   *mongo.Collection
	history *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		lists:   db.Collection(activeListsCollection),
		history: db.Collection(historyCollection),
	}
}

// EnsureIndexes creates the history ordering index. Safe to call repeatedly.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "completed_at", Value: -1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (r *MongoRepository) GetActiveList(ctx context.Context) (*shoppingdomain.ActiveList, error) {
	var doc activeListDocument
	err := r.lists.FindOne(ctx, bson.D{{Key: "_id", Value: shoppingdomain.ActiveListID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shoppingdomain.ErrActiveListNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MongoRepository) CreateActiveList(ctx context.Context, list *shoppingdomain.ActiveList) (*shoppingdomain.ActiveList, error) {
	items := list.Items
	if items == nil {
		items = []shoppingdomain.Item{}
	}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "items", Value: items},
		{Key: "version", Value: list.Version},
		{Key: "created_at", Value: list.CreatedAt},
		{Key: "last_modified", Value: list.LastModified},
	}}}

	_, err := r.lists.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: list.ID}},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}
	return r.GetActiveList(ctx)
}

func (r *MongoRepository) SaveActiveList(ctx context.Context, list *shoppingdomain.ActiveList) error {
	next := list.Version + 1
	result, err := r.lists.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: list.ID}, {Key: "version", Value: list.Version}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "items", Value: list.Items},
			{Key: "version", Value: next},
			{Key: "last_modified", Value: list.LastModified},
		}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, err := r.lists.CountDocuments(ctx, bson.D{{Key: "_id", Value: list.ID}})
		if err != nil {
			return err
		}
		if count == 0 {
			return shoppingdomain.ErrActiveListNotFound
		}
		return shoppingdomain.ErrVersionConflict
	}

	list.Version = next
	return nil
}

func (r *MongoRepository) ListHistory(ctx context.Context) ([]shoppingdomain.HistoryEntry, error) {
	cursor, err := r.history.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}, {Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]shoppingdomain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.toDomain())
	}
	return entries, nil
}

func (r *MongoRepository) GetHistoryEntry(ctx context.Context, id string) (*shoppingdomain.HistoryEntry, error) {
	var doc historyDocument
	err := r.history.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shoppingdomain.ErrHistoryEntryNotFound
		}
		return nil, err
	}
	entry := doc.toDomain()
	return &entry, nil
}

func (r *MongoRepository) CreateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.history.InsertOne(ctx, historyDocument{
		ID:          entry.ID,
		Items:       entry.Items,
		CompletedAt: entry.CompletedAt,
		CreatedAt:   entry.CreatedAt,
	})
	return err
}

func (r *MongoRepository) UpdateHistoryEntry(ctx context.Context, entry *shoppingdomain.HistoryEntry) error {
	result, err := r.history.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: entry.ID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "items", Value: entry.Items}}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return shoppingdomain.ErrHistoryEntryNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteHistoryEntry(ctx context.Context, id string) (bool, error) {
	result, err := r.history.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *MongoRepository) DeleteAllHistory(ctx context.Context) error {
	_, err := r.history.DeleteMany(ctx, bson.D{})
	return err
}
