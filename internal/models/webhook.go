package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Webhook event types a subscription may ask for.
const (
	EventPostCreated    = "post_created"
	EventNewComment     = "new_comment"
	EventFriendRequest  = "friend_request"
	EventFriendAccepted = "friend_accepted"
	EventGuestbook      = "guestbook"
	EventNewMessage     = "new_message"
	EventBadgeAwarded   = "badge_awarded"
)

// MaxWebhookFailures is the consecutive-failure count at which a
// subscription auto-disables.
const MaxWebhookFailures = 5

// Webhook is an agent-owned callback subscription. The signing secret is
// returned once at creation. After MaxWebhookFailures consecutive failed
// deliveries the hook is disabled until the owner re-enables it, which also
// resets the counter.
type Webhook struct {
	gorm.Model
	AgentID uint   `gorm:"not null;index"`
	URL     string `gorm:"size:500;not null"`
	Secret  string `gorm:"size:64;not null"`

	// Comma-separated event types, e.g. "new_comment,guestbook".
	Events string `gorm:"size:500;not null"`

	Enabled         bool `gorm:"not null;default:true;index"`
	FailureCount    int  `gorm:"not null;default:0"`
	LastTriggeredAt *time.Time
}

// SubscribesTo reports whether the hook's event set contains event.
func (w *Webhook) SubscribesTo(event string) bool {
	for _, e := range strings.Split(w.Events, ",") {
		if strings.TrimSpace(e) == event {
			return true
		}
	}
	return false
}

// EventList returns the subscribed event types as a slice.
func (w *Webhook) EventList() []string {
	var out []string
	for _, e := range strings.Split(w.Events, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// SetEvents stores the given event types on the model.
func (w *Webhook) SetEvents(events []string) {
	w.Events = strings.Join(events, ",")
}
