package grateful

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"grateful.app/notifier/internal/domain"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type wireUser struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// wireData holds the loosely typed per-kind fields the backend sends.
type wireData struct {
	Emoji      string `json:"emoji"`
	CommentID  flexID `json:"comment_id"`
	FollowerID flexID `json:"follower_id"`
	SharerID   flexID `json:"sharer_id"`
}

type wireNotification struct {
	ID            flexID     `json:"id"`
	Type          string     `json:"type"`
	Message       string     `json:"message"`
	PostID        flexID     `json:"post_id"`
	FromUser      *wireUser  `json:"from_user"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUpdatedAt *time.Time `json:"last_updated_at"`
	Read          bool       `json:"read"`
	IsBatch       bool       `json:"is_batch"`
	BatchCount    int        `json:"batch_count"`
	ParentID      flexID     `json:"parent_id"`
	Data          wireData   `json:"data"`
}

// toDomain resolves the wire record into its typed variant.
func (w *wireNotification) toDomain() (*domain.Notification, error) {
	n := &domain.Notification{
		ID:            string(w.ID),
		Type:          domain.NotificationType(w.Type),
		Message:       w.Message,
		CreatedAt:     w.CreatedAt,
		LastUpdatedAt: w.LastUpdatedAt,
		Read:          w.Read,
		IsBatch:       w.IsBatch,
		BatchCount:    w.BatchCount,
		ParentID:      string(w.ParentID),
	}
	if n.ID == "" {
		return nil, errors.New("notification without id")
	}
	if w.FromUser != nil {
		n.FromUser = &domain.UserRef{ID: string(w.FromUser.ID), Name: w.FromUser.Name, Image: w.FromUser.Image}
	}
	if n.IsBatch {
		n.ParentID = ""
	}

	postID := string(w.PostID)
	switch n.Type {
	case domain.TypeReaction:
		n.Detail = domain.ReactionDetail{PostID: postID, Emoji: w.Data.Emoji}
	case domain.TypeComment:
		n.Detail = domain.CommentDetail{PostID: postID, CommentID: string(w.Data.CommentID)}
	case domain.TypeShare:
		n.Detail = domain.ShareDetail{PostID: postID}
	case domain.TypeMention:
		n.Detail = domain.MentionDetail{PostID: postID, CommentID: string(w.Data.CommentID)}
	case domain.TypeNewFollower:
		follower := string(w.Data.FollowerID)
		if follower == "" && n.FromUser != nil {
			follower = n.FromUser.ID
		}
		n.Detail = domain.FollowDetail{FollowerID: follower}
	case domain.TypePostShared:
		n.Detail = domain.PostSharedDetail{PostID: postID, SharerID: string(w.Data.SharerID)}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownType, w.Type)
	}
	return n, nil
}

// decodeList accepts a bare array or an envelope with "notifications" or "data".
func decodeList(body []byte) ([]wireNotification, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var list []wireNotification
	if body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode notification list: %w", err)
		}
		return list, nil
	}

	var env struct {
		Notifications []wireNotification `json:"notifications"`
		Data          json.RawMessage    `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode notification envelope: %w", err)
	}
	if env.Notifications != nil {
		return env.Notifications, nil
	}
	if len(env.Data) > 0 {
		return decodeList(env.Data)
	}
	return nil, nil
}
