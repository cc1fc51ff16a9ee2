package domain

// Detail is the per-kind payload of a notification. Exactly one concrete type
// exists per NotificationType; switch on the concrete type to read it.
type Detail interface {
	Kind() NotificationType
}

type postDetail interface {
	postID() string
}

// ReactionDetail: someone reacted to a post with an emoji.
type ReactionDetail struct {
	PostID string `json:"post_id"`
	Emoji  string `json:"emoji,omitempty"`
}

// CommentDetail: someone commented on a post.
type CommentDetail struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
}

// ShareDetail: someone shared a post.
type ShareDetail struct {
	PostID string `json:"post_id"`
}

// MentionDetail: the user was mentioned in a post or comment.
type MentionDetail struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
}

// FollowDetail: someone started following the user. No subject post.
type FollowDetail struct {
	FollowerID string `json:"follower_id"`
}

// PostSharedDetail: a followed user shared a post with the user.
type PostSharedDetail struct {
	PostID   string `json:"post_id"`
	SharerID string `json:"sharer_id,omitempty"`
}

func (ReactionDetail) Kind() NotificationType   { return TypeReaction }
func (CommentDetail) Kind() NotificationType    { return TypeComment }
func (ShareDetail) Kind() NotificationType      { return TypeShare }
func (MentionDetail) Kind() NotificationType    { return TypeMention }
func (FollowDetail) Kind() NotificationType     { return TypeNewFollower }
func (PostSharedDetail) Kind() NotificationType { return TypePostShared }

func (d ReactionDetail) postID() string   { return d.PostID }
func (d CommentDetail) postID() string    { return d.PostID }
func (d ShareDetail) postID() string      { return d.PostID }
func (d MentionDetail) postID() string    { return d.PostID }
func (d PostSharedDetail) postID() string { return d.PostID }
