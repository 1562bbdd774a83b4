package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterRecord struct {
	ID string `bson:"_id"`
	C  int64  `bson:"c"`
}

// counterCollection is the slice of *mongo.Collection the seeder uses
type counterCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Seeder guarantees the global ID counter document exists before any
// traffic is served
type Seeder struct {
	counters counterCollection
}

// NewSeeder creates counter seeder for db
func NewSeeder(db *mongo.Database) (*Seeder, error) {
	if db == nil {
		return nil, errors.New("no DB provided")
	}
	return &Seeder{counters: db.Collection(counterTable)}, nil
}

// Seed inserts the counter document if missing. The seed is zero:
// allocation always adds one, so the first event gets ID 1.
func (s *Seeder) Seed(ctx context.Context) error {
	err := s.counters.FindOne(ctx, bson.M{"_id": counterID}).Err()
	if err == nil {
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return errors.Wrap(err, "can't read counter")
	}
	if _, err := s.counters.InsertOne(ctx, counterRecord{ID: counterID, C: 0}); err != nil {
		if IsDuplicate(err) {
			// lost the seeding race to a concurrent bootstrap, already converged
			log.Ctx(ctx).Warn().Msg("Counter already seeded by another process")
			return nil
		}
		return errors.Wrap(err, "can't insert counter")
	}
	return nil
}
