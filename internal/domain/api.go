package domain

import (
	"context"
	"time"
)

// API is the port to the Grateful backend notification endpoints.
// The implementation lives in infrastructure/grateful.
type API interface {
	// List fetches the root notifications, newest first.
	List(ctx context.Context) ([]*Notification, error)

	// MarkRead persists the read state of a single notification.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead persists the read state of every notification of the user.
	MarkAllRead(ctx context.Context) error

	// Children fetches the events folded into a batch, in server order.
	Children(ctx context.Context, batchID string) ([]*Notification, error)
}

// ReadLedger remembers when notifications were marked read locally so that a
// later poll cannot flip them back to unread unless they changed since.
type ReadLedger interface {
	// Record stores ids as read at the given time. A later time replaces an
	// earlier one.
	Record(ctx context.Context, at time.Time, ids ...string) error

	// ReadIDs returns every recorded id with the time it was last read.
	ReadIDs(ctx context.Context) (map[string]time.Time, error)

	// PurgeOlderThan drops records older than the given number of days.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}
