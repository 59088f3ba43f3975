package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhub/todo-system/internal/core/domain"
)

const collectionTodos = "todos"

// TodoRepository implements ports.TodoRepository using MongoDB. Every filter
// includes user_id.
type TodoRepository struct {
	col      *mongo.Collection
	counters *counters
}

func NewTodoRepository(db *mongo.Database) *TodoRepository {
	return &TodoRepository{
		col:      db.Collection(collectionTodos),
		counters: newCounters(db),
	}
}

type mongoTodo struct {
	ID        int64     `bson:"_id"`
	OwnerID   int64     `bson:"user_id"`
	Title     string    `bson:"title"`
	Completed bool      `bson:"completed"`
	CreatedAt time.Time `bson:"created_at"`
}

func newMongoTodo(t *domain.Todo) mongoTodo {
	return mongoTodo{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func (d mongoTodo) toDomain() domain.Todo {
	return domain.Todo{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// ownedBy matches a single todo only when it belongs to ownerID.
func ownedBy(ownerID, id int64) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

// patchSet builds the $set document for the fields present in patch.
func patchSet(patch domain.TodoPatch) bson.M {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	return set
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := r.col.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []mongoTodo
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}

	todos := make([]domain.Todo, len(docs))
	for i, d := range docs {
		todos[i] = d.toDomain()
	}
	return todos, nil
}

func (r *TodoRepository) Create(ctx context.Context, t *domain.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.counters.next(ctx, collectionTodos)
	if err != nil {
		return err
	}

	doc := newMongoTodo(t)
	doc.ID = id
	_, err = r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	t.ID = id
	return nil
}

// Update sets only the fields present in patch on the owner's document.
func (r *TodoRepository) Update(ctx context.Context, ownerID, id int64, patch domain.TodoPatch) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := patchSet(patch)
	if len(set) == 0 {
		return domain.NewValidationError("No updates provided")
	}

	res, err := r.col.UpdateOne(ctx, ownedBy(ownerID, id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}

// EnsureIndexes creates the per-owner listing index on the todos collection.
func (r *TodoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
