package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
)

// MongoOptions configures the MongoDB connection.
type MongoOptions struct {
	URI          string
	Database     string
	Username     string
	Password     string
	PollInterval time.Duration
}

// MongoStore implements Store on MongoDB. Live updates come from change streams,
// or from polling when the deployment does not support them.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	poll   time.Duration
	log    logger.Logger
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, opts MongoOptions, log logger.Logger) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo uri required")
	}
	clientOptions := options.Client().ApplyURI(opts.URI)
	if opts.Username != "" && opts.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	store := &MongoStore{
		client: client,
		db:     client.Database(opts.Database),
		poll:   poll,
		log:    log.With("store", "mongo", "database", opts.Database),
	}
	store.ensureIndexes(ctx)
	store.log.Info("mongo store opened")
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) {
	indexes := map[crm.Collection]string{
		crm.Queries:  crm.FieldTimestamp,
		crm.Leads:    crm.FieldTimestamp,
		crm.Bookings: crm.FieldBookingDate,
	}
	for coll, field := range indexes {
		model := mongo.IndexModel{Keys: bson.D{{Key: field, Value: -1}}}
		if _, err := s.db.Collection(string(coll)).Indexes().CreateOne(ctx, model); err != nil {
			s.log.Warn("create index", "collection", coll, "field", field, "error", err)
		}
	}
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Create inserts a document under a generated string id.
func (s *MongoStore) Create(ctx context.Context, coll crm.Collection, fields Fields) (string, error) {
	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range fields.stamped(clock()) {
		doc[k] = v
	}
	if _, err := s.db.Collection(string(coll)).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert %s document: %w", coll, err)
	}
	return id, nil
}

// Update sets the named fields on one document.
func (s *MongoStore) Update(ctx context.Context, coll crm.Collection, id string, fields Fields) error {
	set := bson.M{}
	for k, v := range fields.stamped(clock()) {
		set[k] = v
	}
	result, err := s.db.Collection(string(coll)).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s document: %w", coll, err)
	}
	if result.MatchedCount == 0 {
		return crm.ErrNotFound
	}
	return nil
}

// Subscribe pushes the sorted collection now and after every change.
func (s *MongoStore) Subscribe(ctx context.Context, coll crm.Collection, order Order, push func(Snapshot)) error {
	snap, err := s.load(ctx, coll, order)
	if err != nil {
		return err
	}
	push(snap)

	stream, err := s.db.Collection(string(coll)).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.log.Warn("change streams unavailable, polling", "collection", coll, "interval", s.poll, "error", err)
		go s.pollLoop(ctx, coll, order, push)
		return nil
	}
	go s.watchLoop(ctx, stream, coll, order, push)
	return nil
}

func (s *MongoStore) watchLoop(ctx context.Context, stream *mongo.ChangeStream, coll crm.Collection, order Order, push func(Snapshot)) {
	defer stream.Close(context.Background())
	for stream.Next(ctx) {
		snap, err := s.load(ctx, coll, order)
		if err != nil {
			s.log.Error("reload collection", "collection", coll, "error", err)
			continue
		}
		push(snap)
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("change stream ended", "collection", coll, "error", err)
	}
}

func (s *MongoStore) pollLoop(ctx context.Context, coll crm.Collection, order Order, push func(Snapshot)) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.load(ctx, coll, order)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("poll collection", "collection", coll, "error", err)
				}
				continue
			}
			push(snap)
		}
	}
}

func (s *MongoStore) load(ctx context.Context, coll crm.Collection, order Order) (Snapshot, error) {
	dir := 1
	if order.Desc {
		dir = -1
	}
	findOptions := options.Find().SetSort(bson.D{{Key: order.Field, Value: dir}})
	cursor, err := s.db.Collection(string(coll)).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return Snapshot{}, fmt.Errorf("find %s: %w", coll, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.Raw
	if err := cursor.All(ctx, &raws); err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", coll, err)
	}
	snap := Snapshot{Collection: coll, Docs: make([]Document, 0, len(raws))}
	for _, raw := range raws {
		snap.Docs = append(snap.Docs, bsonDocument(raw))
	}
	return snap, nil
}

func bsonDocument(raw bson.Raw) Document {
	id := ""
	if v, err := raw.LookupErr("_id"); err == nil {
		if str, ok := v.StringValueOK(); ok {
			id = str
		} else if oid, ok := v.ObjectIDOK(); ok {
			id = oid.Hex()
		}
	}
	return NewDocument(id, func(v any) error { return bson.Unmarshal(raw, v) })
}
