package audit

import (
	"context"
	"time"
)

// Filter narrows a compliance report query. Zero values mean "any".
type Filter struct {
	ActorID      string
	ResourceType ResourceType
	From         time.Time
	To           time.Time
}

// Store is the persistence contract the sink requires: append-only writes
// plus a read surface for compliance reporting. Implementations must make
// each append atomic; ordering between concurrent appends is not required
// because every entry carries its own timestamp.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}
