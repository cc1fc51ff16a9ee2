package messages

import (
	"fmt"
	"time"

	"grateful.app/notifier/internal/domain"
)

// Text returns the message a view should show for n. The server's pre-rendered
// message wins; the fallback is built from the notification's kind, or is
// generic when the kind is unknown. It is never empty.
func Text(n *domain.Notification) string {
	if n.Message != "" {
		return n.Message
	}
	if n.IsBatch {
		return batchText(n)
	}
	return singleText(n)
}

func singleText(n *domain.Notification) string {
	who := SomeoneName
	if n.FromUser != nil && n.FromUser.Name != "" {
		who = n.FromUser.Name
	}

	switch d := n.Detail.(type) {
	case domain.ReactionDetail:
		if d.Emoji == "" {
			return fmt.Sprintf(ReactionNoEmoji, who)
		}
		return fmt.Sprintf(ReactionBody, who, d.Emoji)
	case domain.CommentDetail:
		return fmt.Sprintf(CommentBody, who)
	case domain.ShareDetail:
		return fmt.Sprintf(ShareBody, who)
	case domain.MentionDetail:
		return fmt.Sprintf(MentionBody, who)
	case domain.FollowDetail:
		return fmt.Sprintf(NewFollowerBody, who)
	case domain.PostSharedDetail:
		return fmt.Sprintf(PostSharedBody, who)
	}
	return fmt.Sprintf(GenericBody, who)
}

func batchText(n *domain.Notification) string {
	count := n.BatchCount
	if count < 1 {
		count = 1
	}

	switch n.Detail.(type) {
	case domain.ReactionDetail:
		return fmt.Sprintf(ReactionBatch, count)
	case domain.CommentDetail:
		return fmt.Sprintf(CommentBatch, count)
	case domain.ShareDetail:
		return fmt.Sprintf(ShareBatch, count)
	case domain.MentionDetail:
		return fmt.Sprintf(MentionBatch, count)
	case domain.FollowDetail:
		return fmt.Sprintf(NewFollowerBatch, count)
	case domain.PostSharedDetail:
		return fmt.Sprintf(PostSharedBatch, count)
	}
	return fmt.Sprintf(GenericBatch, count)
}

// Relative renders t relative to now, e.g. "5m ago". Anything older than four
// weeks is shown as a date.
func Relative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return JustNow
	case d < time.Hour:
		return fmt.Sprintf(MinutesAgo, int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf(HoursAgo, int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf(DaysAgo, int(d/(24*time.Hour)))
	case d < 28*24*time.Hour:
		return fmt.Sprintf(WeeksAgo, int(d/(7*24*time.Hour)))
	}
	return t.Format(DateLayout)
}
