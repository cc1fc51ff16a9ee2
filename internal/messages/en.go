package messages

// ─── Singular events ─────────────────────────────────────────────────────────

const (
	ReactionBody    = "%s reacted %s to your post"
	ReactionNoEmoji = "%s reacted to your post"
	CommentBody     = "%s commented on your post"
	ShareBody       = "%s shared your post"
	MentionBody     = "%s mentioned you"
	NewFollowerBody = "%s started following you"
	PostSharedBody  = "%s shared a post with you"
	GenericBody     = "%s sent you a notification"
)

// ─── Batch summaries ─────────────────────────────────────────────────────────

const (
	ReactionBatch    = "%d people reacted to your post"
	CommentBatch     = "%d people commented on your post"
	ShareBatch       = "%d people shared your post"
	MentionBatch     = "You were mentioned %d times"
	NewFollowerBatch = "%d people started following you"
	PostSharedBatch  = "%d posts were shared with you"
	GenericBatch     = "You have %d new notifications"
)

// ─── Relative time ───────────────────────────────────────────────────────────

const (
	JustNow    = "just now"
	MinutesAgo = "%dm ago"
	HoursAgo   = "%dh ago"
	DaysAgo    = "%dd ago"
	WeeksAgo   = "%dw ago"
	DateLayout = "Jan 2, 2006"

	SomeoneName = "Someone"
)
