// Package mongostore implements store.Backend on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/store"
)

const (
	holdingsCollection  = "holdings"
	ordersCollection    = "orders"
	positionsCollection = "positions"
)

// nameCollation compares strings case-insensitively; the unique index on
// holdings.name is built with it so lookups and uniqueness agree.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// Options configures Open.
type Options struct {
	URI      string
	Database string
	// Transactions wraps Atomically in a multi-document transaction.
	// Requires a replica set or sharded cluster.
	Transactions bool
}

// Store is a MongoDB-backed store.Backend.
type Store struct {
	client       *mongo.Client
	holdings     *mongo.Collection
	orders       *mongo.Collection
	positions    *mongo.Collection
	transactions bool
}

var _ store.Backend = (*Store)(nil)

// Open connects, verifies the connection and ensures indexes. The caller
// owns the returned Store and must Close it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := New(client, opts.Database, opts.Transactions)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string, transactions bool) *Store {
	db := client.Database(database)
	return &Store{
		client:       client,
		holdings:     db.Collection(holdingsCollection),
		orders:       db.Collection(ordersCollection),
		positions:    db.Collection(positionsCollection),
		transactions: transactions,
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the case-insensitive unique index on holding names.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.holdings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(nameCollation),
	})
	return domain.WrapStorage("ensure indexes", err)
}

// Atomically implements store.Transactor. Without transactions enabled fn
// runs directly, and a failure after the first write leaves earlier writes
// in place.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return domain.WrapStorage("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// IsID reports whether id is a 24 character hex ObjectID.
func (s *Store) IsID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// FindHoldingByID looks a holding up by ObjectID.
func (s *Store) FindHoldingByID(ctx context.Context, id string) (*domain.Holding, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findHolding(ctx, bson.M{"_id": oid}, options.FindOne())
}

// FindHoldingByName matches the full name under a case-insensitive collation.
func (s *Store) FindHoldingByName(ctx context.Context, name string) (*domain.Holding, error) {
	return s.findHolding(ctx, bson.M{"name": name}, options.FindOne().SetCollation(nameCollation))
}

func (s *Store) findHolding(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Holding, error) {
	var doc holdingDoc
	err := s.holdings.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("find holding", err)
	}
	return doc.toHolding(), nil
}

// InsertHolding inserts h and returns the new ObjectID in hex.
func (s *Store) InsertHolding(ctx context.Context, h *domain.Holding) (string, error) {
	res, err := s.holdings.InsertOne(ctx, fromHolding(h))
	if mongo.IsDuplicateKeyError(err) {
		return "", &domain.StorageError{Op: "insert holding", Err: store.ErrDuplicateInstrument}
	}
	if err != nil {
		return "", domain.WrapStorage("insert holding", err)
	}
	return insertedHex(res), nil
}

// UpdateHolding sets qty and price on h.ID.
func (s *Store) UpdateHolding(ctx context.Context, h *domain.Holding) error {
	oid, err := primitive.ObjectIDFromHex(h.ID)
	if err != nil {
		return &domain.StorageError{Op: "update holding", Err: store.ErrNoRecord}
	}
	res, err := s.holdings.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"qty":   h.Quantity.InexactFloat64(),
		"price": h.AveragePrice.InexactFloat64(),
	}})
	if err != nil {
		return domain.WrapStorage("update holding", err)
	}
	if res.MatchedCount == 0 {
		return &domain.StorageError{Op: "update holding", Err: store.ErrNoRecord}
	}
	return nil
}

// DeleteHolding removes the holding with the given ObjectID.
func (s *Store) DeleteHolding(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return &domain.StorageError{Op: "delete holding", Err: store.ErrNoRecord}
	}
	res, err := s.holdings.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return domain.WrapStorage("delete holding", err)
	}
	if res.DeletedCount == 0 {
		return &domain.StorageError{Op: "delete holding", Err: store.ErrNoRecord}
	}
	return nil
}

// InsertOrder appends o to the orders collection.
func (s *Store) InsertOrder(ctx context.Context, o *domain.Order) (string, error) {
	res, err := s.orders.InsertOne(ctx, fromOrder(o))
	if err != nil {
		return "", domain.WrapStorage("insert order", err)
	}
	return insertedHex(res), nil
}

// ListHoldings returns every holding sorted by name.
func (s *Store) ListHoldings(ctx context.Context) ([]*domain.Holding, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetCollation(nameCollation)
	var docs []holdingDoc
	if err := s.findAll(ctx, s.holdings, opts, &docs); err != nil {
		return nil, domain.WrapStorage("list holdings", err)
	}
	result := make([]*domain.Holding, len(docs))
	for i := range docs {
		result[i] = docs[i].toHolding()
	}
	return result, nil
}

// ListOrders returns the order log oldest first.
func (s *Store) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	var docs []orderDoc
	if err := s.findAll(ctx, s.orders, opts, &docs); err != nil {
		return nil, domain.WrapStorage("list orders", err)
	}
	result := make([]*domain.Order, len(docs))
	for i := range docs {
		result[i] = docs[i].toOrder()
	}
	return result, nil
}

// ListPositions returns every position row.
func (s *Store) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	var docs []positionDoc
	if err := s.findAll(ctx, s.positions, options.Find(), &docs); err != nil {
		return nil, domain.WrapStorage("list positions", err)
	}
	result := make([]*domain.Position, len(docs))
	for i := range docs {
		result[i] = docs[i].toPosition()
	}
	return result, nil
}

func (s *Store) findAll(ctx context.Context, coll *mongo.Collection, opts *options.FindOptions, out any) error {
	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(res.InsertedID)
}
