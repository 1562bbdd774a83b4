package mocks

import (
	"testing"

	"github.com/petergtz/pegomock/v4"
)

//go:generate pegomock generate --package=mocks --output=healthChecker.go -m github.com/rackerlabs/rse/internal/pkg/service HealthChecker
//go:generate pegomock generate --package=mocks --output=eventStore.go -m github.com/rackerlabs/rse/internal/pkg/service EventStore
//go:generate pegomock generate --package=mocks --output=auth.go -m github.com/rackerlabs/rse/internal/pkg/service Auth
//go:generate pegomock generate --package=mocks --output=tokenCache.go -m github.com/rackerlabs/rse/internal/pkg/authcache TokenCache

// AttachMockToTest registers pegomock verification to be passed to the testing engine
func AttachMockToTest(t *testing.T) {
	pegomock.RegisterMockFailHandler(handleByTest(t))
}

func handleByTest(t *testing.T) pegomock.FailHandler {
	return func(message string, callerSkip ...int) {
		if message != "" {
			t.Error(message)
		}
	}
}
