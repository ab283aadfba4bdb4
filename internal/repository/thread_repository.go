package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

const threadColumns = "id, category_id, title, author_email, content, rich_content, context_type, context_id, is_pinned, is_locked, last_activity_at, metadata, created_at, updated_at"

// ThreadRepository provides persistence for forum threads.
type ThreadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository creates the repository.
func NewThreadRepository(db *sqlx.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// ListByCategory returns a category's threads pinned-first, then by most
// recent activity. Active pinned discussions always surface first.
func (r *ThreadRepository) ListByCategory(ctx context.Context, filter models.ThreadFilter) ([]models.Thread, error) {
	query := fmt.Sprintf(`SELECT %s FROM forum_threads WHERE category_id = $1`, threadColumns)
	args := []interface{}{filter.CategoryID}
	if !filter.IncludeLocked {
		query += " AND is_locked = FALSE"
	}
	query += " ORDER BY is_pinned DESC, last_activity_at DESC"

	var threads []models.Thread
	if err := r.db.SelectContext(ctx, &threads, query, args...); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// GetByID returns a thread by identifier.
func (r *ThreadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	query := fmt.Sprintf("SELECT %s FROM forum_threads WHERE id = $1", threadColumns)
	var thread models.Thread
	if err := r.db.GetContext(ctx, &thread, query, id); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Create inserts a new thread. Threads start unlocked and unpinned.
func (r *ThreadRepository) Create(ctx context.Context, thread *models.Thread) error {
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	if thread.LastActivityAt.IsZero() {
		thread.LastActivityAt = now
	}
	if len(thread.Metadata) == 0 {
		thread.Metadata = []byte("{}")
	}
	query := `INSERT INTO forum_threads (id, category_id, title, author_email, content, rich_content, context_type, context_id, is_pinned, is_locked, last_activity_at, metadata, created_at, updated_at)
VALUES (:id, :category_id, :title, :author_email, :content, :rich_content, :context_type, :context_id, :is_pinned, :is_locked, :last_activity_at, :metadata, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, thread); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

// Update modifies an existing thread. category_id is immutable and is
// deliberately absent from the statement.
func (r *ThreadRepository) Update(ctx context.Context, thread *models.Thread) error {
	thread.UpdatedAt = time.Now().UTC()
	query := `UPDATE forum_threads SET title = :title, content = :content, rich_content = :rich_content,
context_type = :context_type, context_id = :context_id, metadata = :metadata,
last_activity_at = :last_activity_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, thread); err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	return nil
}

// SetPinned toggles the pinned flag.
func (r *ThreadRepository) SetPinned(ctx context.Context, id string, pinned bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE forum_threads SET is_pinned = $2, updated_at = $3 WHERE id = $1", id, pinned, time.Now().UTC()); err != nil {
		return fmt.Errorf("set thread pinned: %w", err)
	}
	return nil
}

// SetLocked toggles the locked flag.
func (r *ThreadRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE forum_threads SET is_locked = $2, updated_at = $3 WHERE id = $1", id, locked, time.Now().UTC()); err != nil {
		return fmt.Errorf("set thread locked: %w", err)
	}
	return nil
}

// TouchActivity bumps last_activity_at so reply traffic feeds list ordering.
func (r *ThreadRepository) TouchActivity(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE forum_threads SET last_activity_at = $2 WHERE id = $1", id, ts); err != nil {
		return fmt.Errorf("touch thread activity: %w", err)
	}
	return nil
}

// Delete removes a thread.
func (r *ThreadRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM forum_threads WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}
