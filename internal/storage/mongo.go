package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"exdform/internal/domain"
)

const (
	defaultMongoDatabase = "exdform"
	countersCollection   = "counters"
)

// MongoRecordStore implements domain.RecordStore on a MongoDB collection.
// Documents are {_id: int64, form_data: string}; ids come from a counter
// document so they increase like the SQL autoincrement column.
type MongoRecordStore struct {
	client   *mongo.Client
	records  *mongo.Collection
	counters *mongo.Collection
}

var _ domain.RecordStore = (*MongoRecordStore)(nil)

type mongoRecord struct {
	ID       int64  `bson:"_id"`
	FormData string `bson:"form_data"`
}

// NewMongoRecordStore connects to uri and uses the data collection of dbName.
func NewMongoRecordStore(ctx context.Context, uri, dbName string) (*MongoRecordStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	return &MongoRecordStore{
		client:   client,
		records:  db.Collection(recordTable),
		counters: db.Collection(countersCollection),
	}, nil
}

func (s *MongoRecordStore) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": recordTable},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next record id: %w", err)
	}
	return counter.Seq, nil
}

func (s *MongoRecordStore) Append(ctx context.Context, r domain.Record) (int64, error) {
	data, err := domain.MarshalRecord(r)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}
	id, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.records.InsertOne(ctx, mongoRecord{ID: id, FormData: string(data)}); err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

func (s *MongoRecordStore) ReadAll(ctx context.Context) ([]domain.StoredRecord, error) {
	cursor, err := s.records.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	out := make([]domain.StoredRecord, 0, len(docs))
	for _, d := range docs {
		rec := domain.Record{}
		if d.FormData != "" {
			rec, err = domain.UnmarshalRecord([]byte(d.FormData))
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", d.ID, err)
			}
		}
		out = append(out, domain.StoredRecord{ID: d.ID, Data: rec})
	}
	return out, nil
}

func (s *MongoRecordStore) Clear(ctx context.Context) error {
	if _, err := s.records.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (s *MongoRecordStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
