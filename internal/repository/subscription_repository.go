package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

// SubscriptionRepository persists per-(thread, user) notification opt-ins.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Get returns the subscription for a (thread, user) pair.
func (r *SubscriptionRepository) Get(ctx context.Context, threadID, userEmail string) (*models.Subscription, error) {
	const query = `SELECT id, thread_id, user_email, notify, created_at, updated_at
FROM forum_thread_subscriptions WHERE thread_id = $1 AND user_email = $2`
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, threadID, userEmail); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert creates or refreshes a subscription. Subscribing twice leaves
// exactly one row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	const query = `INSERT INTO forum_thread_subscriptions (id, thread_id, user_email, notify, created_at, updated_at)
		VALUES (:id, :thread_id, :user_email, :notify, :created_at, :updated_at)
		ON CONFLICT (thread_id, user_email) DO UPDATE
		SET notify = EXCLUDED.notify,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription. Deleting an absent row is a no-op.
func (r *SubscriptionRepository) Delete(ctx context.Context, threadID, userEmail string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM forum_thread_subscriptions WHERE thread_id = $1 AND user_email = $2", threadID, userEmail); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListNotifiable returns subscribers of a thread that opted into
// notifications, used by the post fan-out worker.
func (r *SubscriptionRepository) ListNotifiable(ctx context.Context, threadID string) ([]models.Subscription, error) {
	const query = `SELECT id, thread_id, user_email, notify, created_at, updated_at
FROM forum_thread_subscriptions WHERE thread_id = $1 AND notify = TRUE ORDER BY created_at ASC`
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, threadID); err != nil {
		return nil, fmt.Errorf("list notifiable subscriptions: %w", err)
	}
	return subs, nil
}
