package mongodb

import (
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// IsDuplicate returns true if error indicates index duplicate key error
func IsDuplicate(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// IsIndexNotFound returns true if error indicates the index does not exist.
// A missing collection counts too: a fresh store answers dropIndexes with
// NamespaceNotFound, and no collection means no index either.
func IsIndexNotFound(err error) bool {
	var e mongo.CommandError
	if errors.As(err, &e) {
		return e.Code == 27 || e.Name == "IndexNotFound" ||
			e.Code == 26 || e.Name == "NamespaceNotFound"
	}
	return false
}

// server codes expected to self resolve: elections, stepdowns, shutdown in progress
var transientCodes = map[int32]bool{
	91:    true, // ShutdownInProgress
	189:   true, // PrimarySteppedDown
	10107: true, // NotWritablePrimary
	11600: true, // InterruptedAtShutdown
	11602: true, // InterruptedDueToReplStateChange
	13435: true, // NotPrimaryNoSecondaryOk
	13436: true, // NotPrimaryOrSecondary
}

// IsTransient returns true for failures expected to self resolve shortly:
// a node mid-election, temporary unreachability, timeouts
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var e mongo.CommandError
	if errors.As(err, &e) {
		return transientCodes[e.Code] || e.HasErrorLabel("RetryableWriteError")
	}
	return false
}

// Sanitize sanitizes for mongo input
func Sanitize(s string) string {
	return strings.Trim(s, " $/^\\")
}
