package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrDatabaseUnavailable indicates the retry budget was exhausted
// without the DB becoming reachable
var ErrDatabaseUnavailable = errors.New("database unavailable")

// RetryPolicy bounds retries of a startup phase on transient DB failures.
// The attempt budget is shared across the whole phase, not per sub-step.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is the startup policy: ten attempts, half a second apart
var DefaultRetry = RetryPolicy{Attempts: 10, Backoff: 500 * time.Millisecond}

// Do invokes f until it succeeds, fails with a non transient error or the
// attempt budget runs out. Success terminates the loop immediately.
func (p RetryPolicy) Do(ctx context.Context, name string, f func(context.Context) error) error {
	if p.Attempts < 1 {
		return errors.Errorf("wrong retry attempts %d", p.Attempts)
	}
	var err error
	for i := 0; i < p.Attempts; i++ {
		if i > 0 {
			time.Sleep(p.Backoff)
		}
		if err = f(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if i+1 < p.Attempts {
			log.Ctx(ctx).Warn().Err(err).Int("attempt", i+1).Msgf("Transient failure on %s. Retrying...", name)
		}
	}
	return errors.Wrapf(ErrDatabaseUnavailable, "%s failed after %d attempts (last: %v)", name, p.Attempts, err)
}
