package domain

import (
	"errors"
	"time"
)

// NotificationType identifies the kind of event a notification describes.
type NotificationType string

const (
	TypeReaction    NotificationType = "reaction"
	TypeComment     NotificationType = "comment"
	TypeShare       NotificationType = "share"
	TypeMention     NotificationType = "mention"
	TypeNewFollower NotificationType = "new_follower"
	TypePostShared  NotificationType = "post_shared"
)

var (
	// ErrNotFound is returned when an id matches neither a root nor a cached child.
	ErrNotFound = errors.New("notification not found")
	// ErrNotBatch is returned when a toggle targets a notification that is not a batch.
	ErrNotBatch = errors.New("notification is not a batch")
	// ErrNoCredential signals that no usable bearer token is available.
	ErrNoCredential = errors.New("no credential available")
	// ErrUnknownType is returned by decoders for a type outside the known set.
	ErrUnknownType = errors.New("unknown notification type")
)

// UserRef is the display identity of the user who triggered a notification.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Notification is a single entry as seen by the client. Roots come from the
// list endpoint; children are fetched on batch expansion and carry ParentID.
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	Message       string           `json:"message"`
	FromUser      *UserRef         `json:"from_user,omitempty"`
	Detail        Detail           `json:"detail"`
	CreatedAt     time.Time        `json:"created_at"`
	LastUpdatedAt *time.Time       `json:"last_updated_at,omitempty"`
	Read          bool             `json:"read"`
	IsBatch       bool             `json:"is_batch"`
	BatchCount    int              `json:"batch_count,omitempty"`
	ParentID      string           `json:"parent_id,omitempty"`
}

// DisplayTime is the timestamp a view should render relative time against.
func (n *Notification) DisplayTime() time.Time {
	if n.LastUpdatedAt != nil && !n.LastUpdatedAt.IsZero() {
		return *n.LastUpdatedAt
	}
	return n.CreatedAt
}

// PostID returns the subject post of the notification, if its kind has one.
func (n *Notification) PostID() (string, bool) {
	if p, ok := n.Detail.(postDetail); ok {
		return p.postID(), true
	}
	return "", false
}

// Clone returns a deep copy so callers can hold snapshots without racing the store.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.FromUser != nil {
		u := *n.FromUser
		c.FromUser = &u
	}
	if n.LastUpdatedAt != nil {
		t := *n.LastUpdatedAt
		c.LastUpdatedAt = &t
	}
	return &c
}

// AsChildOf normalizes n as an expansion child of batchID. Children are never
// batches themselves and always reference their batch.
func (n *Notification) AsChildOf(batchID string) *Notification {
	c := n.Clone()
	c.IsBatch = false
	c.BatchCount = 0
	c.ParentID = batchID
	return c
}
