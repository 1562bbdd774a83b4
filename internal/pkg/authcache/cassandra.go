package authcache

import (
	"context"
	"sync"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type cassandraCache struct {
	cluster *gocql.ClusterConfig
	prefix  string
	table   string

	m       sync.Mutex // guards session
	session *gocql.Session
}

func newCassandra(tokenPrefix string, cfg *viper.Viper) (*cassandraCache, error) {
	if cfg == nil {
		return nil, errors.New("no authcache configuration provided")
	}
	hosts := splitServers(cfg.GetString("cassandra.hosts"))
	if len(hosts) == 0 {
		return nil, errors.New("no cassandra hosts configured")
	}
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = cfg.GetString("cassandra.keyspace")
	if cluster.Keyspace == "" {
		cluster.Keyspace = "rse"
	}
	cluster.Consistency = gocql.One
	table := cfg.GetString("cassandra.table")
	if table == "" {
		table = "auth_token_cache"
	}
	return &cassandraCache{cluster: cluster, prefix: tokenPrefix, table: table}, nil
}

// ValidToken treats a stored row for the prefixed token as a valid token
func (c *cassandraCache) ValidToken(ctx context.Context, token string) (bool, error) {
	session, err := c.getSession()
	if err != nil {
		return false, errors.Wrap(err, "can't connect to cassandra")
	}
	var found string
	err = session.Query(`SELECT token FROM `+c.table+` WHERE token = ?`, c.prefix+token).
		WithContext(ctx).Scan(&found)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "can't get token from cassandra")
	}
	return true, nil
}

// getSession opens the session on first use: an unreachable cluster is a
// transient condition, not a configuration defect
func (c *cassandraCache) getSession() (*gocql.Session, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.session == nil {
		session, err := c.cluster.CreateSession()
		if err != nil {
			return nil, err
		}
		c.session = session
	}
	return c.session, nil
}
