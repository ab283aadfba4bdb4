package models

import "time"

// Subscription is a per-(thread, user) notification opt-in. Subscribing is
// an upsert and unsubscribing a hard delete; both are idempotent.
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	ThreadID  string    `db:"thread_id" json:"thread_id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	Notify    bool      `db:"notify" json:"notify"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
