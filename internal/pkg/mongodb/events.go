package mongodb

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rackerlabs/rse/internal/pkg/service/api"
)

type eventRecord struct {
	ID        int64     `bson:"_id"`
	UUID      string    `bson:"uuid"`
	Channel   string    `bson:"channel"`
	Data      string    `bson:"data"`
	UserAgent string    `bson:"user_agent,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// EventRepository stores and reads channel events. It is given the
// general handle: reads may go to secondaries, writes route to the
// primary by the driver itself.
type EventRepository struct {
	events   *mongo.Collection
	counters *mongo.Collection
}

// NewEventRepository creates event repository over db
func NewEventRepository(db *mongo.Database) (*EventRepository, error) {
	if db == nil {
		return nil, errors.New("no DB provided")
	}
	return &EventRepository{events: db.Collection(eventTable), counters: db.Collection(counterTable)}, nil
}

// Post allocates the next event ID and stores the event.
// A missing UUID gets a server generated one.
func (r *EventRepository) Post(ctx context.Context, ev *api.Event) error {
	if ev.Channel == "" {
		return errors.New("no channel provided")
	}
	if ev.UUID == "" {
		ev.UUID = ulid.Make().String()
	}
	id, err := r.nextID(ctx)
	if err != nil {
		return errors.Wrap(err, "can't allocate event ID")
	}
	ev.ID = id
	ev.CreatedAt = time.Now().UTC()
	rec := eventRecord{ID: ev.ID, UUID: ev.UUID, Channel: Sanitize(ev.Channel),
		Data: ev.Data, UserAgent: ev.UserAgent, CreatedAt: ev.CreatedAt}
	if _, err := r.events.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(err, "can't insert event")
	}
	return nil
}

// nextID increments the shared counter under the store's atomic guarantee
func (r *EventRepository) nextID(ctx context.Context) (int64, error) {
	res := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": counterID},
		bson.M{"$inc": bson.M{"c": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var rec counterRecord
	if err := res.Decode(&rec); err != nil {
		return 0, err
	}
	return rec.C, nil
}

// ListAfter returns up to limit channel events with ID greater than lastID,
// oldest first
func (r *EventRepository) ListAfter(ctx context.Context, channel string, lastID, limit int64) ([]api.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)
	cursor, err := r.events.Find(ctx, bson.M{"channel": Sanitize(channel), "_id": bson.M{"$gt": lastID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "can't get events")
	}
	defer func() { _ = cursor.Close(ctx) }()
	res := []api.Event{}
	for cursor.Next(ctx) {
		var rec eventRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "can't decode event")
		}
		res = append(res, api.Event{ID: rec.ID, UUID: rec.UUID, Channel: rec.Channel,
			Data: rec.Data, UserAgent: rec.UserAgent, CreatedAt: rec.CreatedAt})
	}
	return res, cursor.Err()
}
