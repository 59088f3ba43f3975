package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionCounters = "counters"

// counters hands out monotonically increasing int64 ids per sequence name,
// matching the integer identities of the SQL store.
type counters struct {
	coll *mongo.Collection
}

func newCounters(db *mongo.Database) *counters {
	return &counters{coll: db.Collection(collectionCounters)}
}

type counterDoc struct {
	Seq int64 `bson:"seq"`
}

func (c *counters) next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := c.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}
