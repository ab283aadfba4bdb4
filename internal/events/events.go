package events

import "context"

// Domain event names broadcast after successful mutations. Connected
// clients receive every event and filter by category/thread id themselves.
const (
	CategoryCreated     = "category_created"
	CategoryUpdated     = "category_updated"
	CategoryDeleted     = "category_deleted"
	ThreadCreated       = "thread_created"
	ThreadUpdated       = "thread_updated"
	ThreadDeleted       = "thread_deleted"
	PostCreated         = "post_created"
	PostUpdated         = "post_updated"
	PostDeleted         = "post_deleted"
	SubscriptionChanged = "subscription_changed"
	Notification        = "notification"
)

// Bus broadcasts domain events to connected clients. Delivery is
// fire-and-forget: no acknowledgement, no per-subscriber filtering.
type Bus interface {
	Emit(ctx context.Context, name string, payload interface{}) error
}

// CategoryPayload accompanies category lifecycle events.
type CategoryPayload struct {
	CategoryID string `json:"categoryId"`
}

// ThreadPayload accompanies thread lifecycle events. CategoryID is set on
// create/update so clients can refresh the containing list.
type ThreadPayload struct {
	CategoryID string `json:"categoryId,omitempty"`
	ThreadID   string `json:"threadId"`
}

// PostPayload accompanies post lifecycle events.
type PostPayload struct {
	ThreadID string `json:"threadId"`
	PostID   string `json:"postId"`
}

// SubscriptionPayload reports the declared subscription state, which is
// emitted even when no row actually changed.
type SubscriptionPayload struct {
	ThreadID   string `json:"threadId"`
	UserEmail  string `json:"userEmail"`
	Subscribed bool   `json:"subscribed"`
}

// NotificationPayload targets a single subscriber after a new post.
type NotificationPayload struct {
	UserEmail string `json:"userEmail"`
	ThreadID  string `json:"threadId"`
	PostID    string `json:"postId"`
}
