package mongodb

const (
	eventTable   = "events"
	counterTable = "counters"

	lookupIndexName = "get_events"
	ttlIndexName    = "ttl"

	counterID = "last_known_id"
)

// indexes left behind by old deployments, dropped on startup so they
// don't bloat the working set
var deprecatedIndexes = []string{"uuid_1_channel_1", "created_at_1"}
