package http

import (
	"time"

	"grateful.app/notifier/internal/application"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/messages"
)

// NotificationView is what local views render for one notification.
type NotificationView struct {
	ID          string                  `json:"id"`
	Type        domain.NotificationType `json:"type"`
	Text        string                  `json:"text"`
	PostID      string                  `json:"post_id,omitempty"`
	FromUser    *domain.UserRef         `json:"from_user,omitempty"`
	Detail      domain.Detail           `json:"detail"`
	DisplayTime time.Time               `json:"display_time"`
	Relative    string                  `json:"relative"`
	Read        bool                    `json:"read"`
	IsBatch     bool                    `json:"is_batch"`
	BatchCount  int                     `json:"batch_count,omitempty"`
	ParentID    string                  `json:"parent_id,omitempty"`
}

// SnapshotView is the JSON shape of a store snapshot.
type SnapshotView struct {
	Roots    []NotificationView            `json:"roots"`
	Unread   int                           `json:"unread"`
	Expanded []string                      `json:"expanded"`
	Children map[string][]NotificationView `json:"children"`
}

func toView(n *domain.Notification, now time.Time) NotificationView {
	postID, _ := n.PostID()
	return NotificationView{
		ID:          n.ID,
		Type:        n.Type,
		Text:        messages.Text(n),
		PostID:      postID,
		FromUser:    n.FromUser,
		Detail:      n.Detail,
		DisplayTime: n.DisplayTime(),
		Relative:    messages.Relative(n.DisplayTime(), now),
		Read:        n.Read,
		IsBatch:     n.IsBatch,
		BatchCount:  n.BatchCount,
		ParentID:    n.ParentID,
	}
}

func toViews(list []*domain.Notification, now time.Time) []NotificationView {
	out := make([]NotificationView, len(list))
	for i, n := range list {
		out[i] = toView(n, now)
	}
	return out
}

// NewSnapshotView renders a snapshot relative to now.
func NewSnapshotView(s application.Snapshot, now time.Time) SnapshotView {
	v := SnapshotView{
		Roots:    toViews(s.Roots, now),
		Unread:   s.Unread,
		Expanded: s.Expanded,
		Children: make(map[string][]NotificationView, len(s.Children)),
	}
	for id, kids := range s.Children {
		v.Children[id] = toViews(kids, now)
	}
	return v
}
