package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type indexInfo struct {
	Name               string `bson:"name"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds"`
}

// indexSet is the slice of a collection's index surface the converger needs
type indexSet interface {
	list(ctx context.Context) ([]indexInfo, error)
	create(ctx context.Context, model mongo.IndexModel) error
	drop(ctx context.Context, name string) error
}

// Converger drives the events collection indexes to the desired state,
// whatever a previous deployment left behind. Index mutation requires
// primary consistency, so it must be given the primary handle.
type Converger struct {
	indexes  indexSet
	eventTTL int32
}

// NewConverger creates converger for the events collection of db.
// eventTTLSec is the configured event lifetime in seconds.
func NewConverger(db *mongo.Database, eventTTLSec int32) (*Converger, error) {
	if db == nil {
		return nil, errors.New("no DB provided")
	}
	if eventTTLSec <= 0 {
		return nil, errors.Errorf("wrong event TTL %d", eventTTLSec)
	}
	return &Converger{indexes: mongoIndexes{view: db.Collection(eventTable).Indexes()}, eventTTL: eventTTLSec}, nil
}

// Converge applies one idempotent convergence pass: drop deprecated
// indexes, ensure the lookup index, reconcile the TTL index.
func (c *Converger) Converge(ctx context.Context) error {
	for _, n := range deprecatedIndexes {
		if err := c.indexes.drop(ctx, n); err != nil {
			if !IsIndexNotFound(err) {
				return errors.Wrapf(err, "can't drop index %s", n)
			}
			continue
		}
		log.Ctx(ctx).Info().Str("index", n).Msg("Dropped deprecated index")
	}

	existing, err := c.indexes.list(ctx)
	if err != nil {
		return errors.Wrap(err, "can't list indexes")
	}
	byName := map[string]indexInfo{}
	for _, in := range existing {
		byName[in.Name] = in
	}

	if _, ok := byName[lookupIndexName]; !ok {
		// order matters: the store uses a single index per query, so all
		// lookup filter fields go into one compound index, exact matches first
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: "channel", Value: 1}, {Key: "_id", Value: 1}, {Key: "uuid", Value: 1}},
			Options: options.Index().SetName(lookupIndexName),
		}
		if err := c.indexes.create(ctx, model); err != nil {
			return errors.Wrapf(err, "can't create index %s", lookupIndexName)
		}
	}

	if in, ok := byName[ttlIndexName]; ok {
		if in.ExpireAfterSeconds != nil && *in.ExpireAfterSeconds == c.eventTTL {
			return nil
		}
		// expiry can't be altered in place, recreate with the new value
		log.Ctx(ctx).Info().Int32("expireAfterSeconds", c.eventTTL).Msg("Recreating TTL index")
		if err := c.indexes.drop(ctx, ttlIndexName); err != nil && !IsIndexNotFound(err) {
			return errors.Wrapf(err, "can't drop index %s", ttlIndexName)
		}
	}
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetName(ttlIndexName).SetExpireAfterSeconds(c.eventTTL),
	}
	if err := c.indexes.create(ctx, model); err != nil {
		return errors.Wrapf(err, "can't create index %s", ttlIndexName)
	}
	return nil
}

type mongoIndexes struct {
	view mongo.IndexView
}

func (m mongoIndexes) list(ctx context.Context) ([]indexInfo, error) {
	cursor, err := m.view.List(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()
	var res []indexInfo
	for cursor.Next(ctx) {
		var in indexInfo
		if err := cursor.Decode(&in); err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, cursor.Err()
}

func (m mongoIndexes) create(ctx context.Context, model mongo.IndexModel) error {
	_, err := m.view.CreateOne(ctx, model)
	return err
}

func (m mongoIndexes) drop(ctx context.Context, name string) error {
	_, err := m.view.DropOne(ctx, name)
	return err
}
