package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rackerlabs/rse/internal/pkg/authcache"
	"github.com/rackerlabs/rse/internal/pkg/mongodb"
	"github.com/rackerlabs/rse/internal/pkg/utils"
)

type (
	// Options carries everything needed to bring the service up
	Options struct {
		Provider    string
		TokenPrefix string
		CacheConfig *viper.Viper

		Endpoint mongodb.Endpoint
		EventTTL int32
		TestMode bool
		Retry    mongodb.RetryPolicy
	}

	// Context is the ready to serve application context. It is constructed
	// once by Run, owned by the caller and injected into the route layer -
	// never kept as ambient global state.
	Context struct {
		AuthCache authcache.TokenCache
		Primary   *mongo.Database
		General   *mongo.Database
		TestMode  bool

		handles *mongodb.Handles
	}
)

// Run sequences startup: select the auth cache provider, connect to the
// DB, converge the events collection schema and seed the ID counter.
// There is no partial success - any error means the caller must not
// serve traffic.
func Run(ctx context.Context, opts *Options) (*Context, error) {
	if opts == nil {
		return nil, fmt.Errorf("no options provided")
	}
	log.Ctx(ctx).Debug().Str("provider", opts.Provider).Str("tokenPrefix", opts.TokenPrefix).
		Msg("Auth cache settings")
	cache, err := authcache.New(opts.Provider, opts.TokenPrefix, opts.CacheConfig)
	if err != nil {
		return nil, fmt.Errorf("init auth cache: %w", err)
	}

	log.Ctx(ctx).Info().Str("url", utils.HidePass(opts.Endpoint.URI)).Msg("Connecting to DB")
	handles, err := mongodb.Connect(ctx, opts.Endpoint, opts.Retry)
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}

	if err := initEventsCollection(ctx, handles, opts); err != nil {
		handles.Close()
		return nil, fmt.Errorf("init events collection: %w", err)
	}

	return &Context{AuthCache: cache, Primary: handles.Primary(), General: handles.General(),
		TestMode: opts.TestMode, handles: handles}, nil
}

// initEventsCollection converges indexes and seeds the counter as one
// retried phase, strictly after a primary handle exists
func initEventsCollection(ctx context.Context, handles *mongodb.Handles, opts *Options) error {
	converger, err := mongodb.NewConverger(handles.Primary(), opts.EventTTL)
	if err != nil {
		return err
	}
	seeder, err := mongodb.NewSeeder(handles.Primary())
	if err != nil {
		return err
	}
	return opts.Retry.Do(ctx, "init events collection", func(ctx context.Context) error {
		if err := converger.Converge(ctx); err != nil {
			return err
		}
		return seeder.Seed(ctx)
	})
}

// Healthy reports primary DB reachability
func (c *Context) Healthy(ctx context.Context) error {
	return c.handles.Healthy(ctx)
}

// Close releases both DB connections
func (c *Context) Close() {
	if c.handles != nil {
		c.handles.Close()
	}
}
