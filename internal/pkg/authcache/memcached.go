package authcache

import (
	"context"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type memcachedCache struct {
	client *memcache.Client
	prefix string
}

func newMemcached(tokenPrefix string, cfg *viper.Viper) (*memcachedCache, error) {
	if cfg == nil {
		return nil, errors.New("no authcache configuration provided")
	}
	servers := splitServers(cfg.GetString("memcached.servers"))
	if len(servers) == 0 {
		return nil, errors.New("no memcached servers configured")
	}
	return &memcachedCache{client: memcache.New(servers...), prefix: tokenPrefix}, nil
}

// ValidToken treats a cache hit for the prefixed token as a valid token
func (c *memcachedCache) ValidToken(_ context.Context, token string) (bool, error) {
	_, err := c.client.Get(c.key(token))
	if err == memcache.ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "can't get token from memcached")
	}
	return true, nil
}

func (c *memcachedCache) key(token string) string {
	return c.prefix + token
}

func splitServers(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}
