package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

const postColumns = "id, thread_id, parent_post_id, author_email, content, rich_content, is_deleted, deleted_at, edited_at, created_at, updated_at"

// visibleClause centralizes the soft-delete filter so it cannot drift
// between read paths.
const visibleClause = "is_deleted = FALSE"

// PostRepository provides persistence for forum posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// ListVisibleByThread returns non-deleted posts oldest-first, the
// chronological reading order for a discussion.
func (r *PostRepository) ListVisibleByThread(ctx context.Context, threadID string) ([]models.Post, error) {
	query := fmt.Sprintf("SELECT %s FROM forum_posts WHERE thread_id = $1 AND %s ORDER BY created_at ASC", postColumns, visibleClause)
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, threadID); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetByID returns a post by identifier, deleted or not. Authorization and
// visibility decisions belong to the service layer.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := fmt.Sprintf("SELECT %s FROM forum_posts WHERE id = $1", postColumns)
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	query := `INSERT INTO forum_posts (id, thread_id, parent_post_id, author_email, content, rich_content, is_deleted, deleted_at, edited_at, created_at, updated_at)
VALUES (:id, :thread_id, :parent_post_id, :author_email, :content, :rich_content, :is_deleted, :deleted_at, :edited_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update rewrites a post's content and stamps edited_at.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.UpdatedAt = now
	post.EditedAt = &now
	query := `UPDATE forum_posts SET content = :content, rich_content = :rich_content, edited_at = :edited_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// SoftDelete marks a post removed without deleting the row, keeping reply
// chains intact.
func (r *PostRepository) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE forum_posts SET is_deleted = TRUE, deleted_at = $2, updated_at = $2 WHERE id = $1", id, ts); err != nil {
		return fmt.Errorf("soft delete post: %w", err)
	}
	return nil
}

// ListReactionsByThread returns aggregated reaction counts for every
// visible post of a thread. The reactions table is externally owned.
func (r *PostRepository) ListReactionsByThread(ctx context.Context, threadID string) ([]models.PostReaction, error) {
	query := fmt.Sprintf(`SELECT pr.post_id, pr.reaction, COUNT(*) AS count
FROM forum_post_reactions pr
JOIN forum_posts p ON p.id = pr.post_id
WHERE p.thread_id = $1 AND p.%s
GROUP BY pr.post_id, pr.reaction
ORDER BY pr.post_id`, visibleClause)
	var reactions []models.PostReaction
	if err := r.db.SelectContext(ctx, &reactions, query, threadID); err != nil {
		return nil, fmt.Errorf("list post reactions: %w", err)
	}
	return reactions, nil
}
