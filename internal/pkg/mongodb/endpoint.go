package mongodb

import (
	"crypto/tls"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NoReplicaSet is the config sentinel disabling replica topology awareness.
const NoReplicaSet = "[none]"

// Endpoint describes the mongo deployment the service connects to.
// It is resolved once at startup and immutable afterwards.
type Endpoint struct {
	URI        string
	Database   string
	ReplicaSet string
	UseSSL     bool
}

// Validate checks required endpoint fields
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.URI) == "" {
		return errors.New("no mongo URI provided")
	}
	if strings.TrimSpace(e.Database) == "" {
		return errors.New("no mongo database provided")
	}
	return nil
}

func (e Endpoint) replicated() bool {
	return e.ReplicaSet != "" && e.ReplicaSet != NoReplicaSet
}

// primaryOptions builds client options for the primary consistent connection
func (e Endpoint) primaryOptions() *options.ClientOptions {
	return e.baseOptions().SetReadPreference(readpref.Primary())
}

// generalOptions builds client options for the secondary preferred connection
func (e Endpoint) generalOptions() *options.ClientOptions {
	res := e.baseOptions().SetReadPreference(readpref.SecondaryPreferred())
	if e.replicated() {
		res = res.SetReplicaSet(e.ReplicaSet)
	}
	return res
}

func (e Endpoint) baseOptions() *options.ClientOptions {
	res := options.Client().ApplyURI(e.URI).SetServerSelectionTimeout(selectionTimeout)
	if e.UseSSL {
		res = res.SetTLSConfig(&tls.Config{})
	}
	return res
}
