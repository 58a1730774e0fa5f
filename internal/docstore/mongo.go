package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourbook-backend/internal/apperr"
)

// Mongo maps every collection onto a MongoDB collection of the same name. The
// document id is both _id and the id field.
type Mongo struct {
	db    *mongo.Database
	clock Clock
}

func NewMongo(db *mongo.Database, clock Clock) *Mongo {
	return &Mongo{db: db, clock: clock}
}

// OpenMongo connects and pings the server before returning the database handle.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(database), nil
}

func (m *Mongo) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := bson.M{}
	for k, v := range doc {
		stored[k] = normalize(v)
	}
	now := stamp(m.clock)
	stored["_id"] = id
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now

	if _, err := m.db.Collection(collection).InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrAlreadyExists)
		}
		return "", err
	}
	return id, nil
}

func (m *Mongo) Read(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, partial Document) error {
	set := bson.M{}
	for k, v := range partial {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		set[k] = normalize(v)
	}
	set[FieldUpdatedAt] = stamp(m.clock)

	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	_, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *Mongo) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := bson.M{}
	for _, f := range q.Filters {
		cond, ok := filter[f.Field].(bson.M)
		if !ok {
			cond = bson.M{}
			filter[f.Field] = cond
		}
		cond[mongoOp(f.Op)] = normalize(f.Value)
	}

	sort := bson.D{}
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: q.OrderBy, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, fromBSON(raw))
	}
	return out, nil
}

// Increment relies on $inc, which the server applies atomically per document.
func (m *Mongo) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	update := bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{FieldUpdatedAt: stamp(m.clock)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	err := m.db.Collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(fromBSON(raw)[field])
	if !ok {
		return 0, fmt.Errorf("increment %s: field is not numeric", field)
	}
	return n, nil
}

func mongoOp(op Op) string {
	switch op {
	case OpLt:
		return "$lt"
	case OpLte:
		return "$lte"
	case OpGt:
		return "$gt"
	case OpGte:
		return "$gte"
	default:
		return "$eq"
	}
}

// fromBSON drops _id and folds driver types (int32, bson.A, nested bson.M)
// into plain Document values.
func fromBSON(raw bson.M) Document {
	delete(raw, "_id")
	doc, ok := normalize(map[string]any(raw)).(map[string]any)
	if !ok {
		return Document{}
	}
	return Document(doc)
}
