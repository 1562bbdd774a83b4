package authcache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// TokenCache looks up a cached validity result for a bearer token
type TokenCache interface {
	ValidToken(ctx context.Context, token string) (bool, error)
}

// ErrUnknownProvider indicates a misspelled or unsupported auth cache
// provider name. It is a configuration defect, never retried.
var ErrUnknownProvider = errors.New("unknown auth cache provider")

// New selects the auth cache implementation by name. Construction only
// validates configuration - backend health is verified on first use.
func New(name, tokenPrefix string, cfg *viper.Viper) (TokenCache, error) {
	switch name {
	case "memcached":
		return newMemcached(tokenPrefix, cfg)
	case "cassandra":
		return newCassandra(tokenPrefix, cfg)
	}
	return nil, errors.Wrapf(ErrUnknownProvider, "'%s'", name)
}
