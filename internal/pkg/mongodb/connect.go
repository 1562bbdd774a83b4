package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	selectionTimeout  = 5 * time.Second
	disconnectTimeout = 30 * time.Second
)

// Handles keeps the two logical connections to the event store.
// Primary routes everything to the cluster's current primary and backs
// health checks and schema writes, General prefers secondaries for read
// scaling. Both own internal pooling and are safe for concurrent use.
type Handles struct {
	primary *mongo.Database
	general *mongo.Database

	primaryClient *mongo.Client
	generalClient *mongo.Client
}

// Connect opens both connections, retrying transient failures under one
// shared budget. A non transient failure aborts at once, an exhausted
// budget yields ErrDatabaseUnavailable.
func Connect(ctx context.Context, e Endpoint, policy RetryPolicy) (*Handles, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	var res *Handles
	err := policy.Do(ctx, "connect to DB", func(ctx context.Context) error {
		h, err := connect(ctx, e)
		if err != nil {
			return err
		}
		res = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func connect(ctx context.Context, e Endpoint) (*Handles, error) {
	primary, err := dial(ctx, e.primaryOptions(), readpref.Primary())
	if err != nil {
		return nil, errors.Wrap(err, "can't connect primary")
	}
	general, err := dial(ctx, e.generalOptions(), readpref.SecondaryPreferred())
	if err != nil {
		disconnect(primary)
		return nil, errors.Wrap(err, "can't connect general")
	}
	return &Handles{
		primary:       primary.Database(e.Database),
		general:       general.Database(e.Database),
		primaryClient: primary,
		generalClient: general,
	}, nil
}

func dial(ctx context.Context, opts *options.ClientOptions, rp *readpref.ReadPref) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pCtx, cancel := context.WithTimeout(ctx, selectionTimeout)
	defer cancel()
	if err := client.Ping(pCtx, rp); err != nil {
		disconnect(client)
		return nil, err
	}
	return client, nil
}

func disconnect(c *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("Can't disconnect mongo client")
	}
}

// Primary returns the primary consistent database handle
func (h *Handles) Primary() *mongo.Database {
	return h.primary
}

// General returns the secondary preferred database handle
func (h *Handles) General() *mongo.Database {
	return h.general
}

// Healthy checks if mongo DB is up
func (h *Handles) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, selectionTimeout)
	defer cancel()
	return h.primaryClient.Ping(ctx, readpref.Primary())
}

// Close closes both connections
func (h *Handles) Close() {
	if h.primaryClient != nil {
		disconnect(h.primaryClient)
	}
	if h.generalClient != nil {
		disconnect(h.generalClient)
	}
}
