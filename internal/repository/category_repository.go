package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

const categoryColumns = "id, title, description, context_type, context_id, visibility, created_by, is_locked, order_index, metadata, created_at, updated_at"

// CategoryRepository provides persistence for forum categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories matching the filter ordered by order_index, then
// creation time ascending. Locked categories are excluded unless requested.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ContextType != nil {
		where = append(where, fmt.Sprintf("context_type = $%d", len(args)+1))
		args = append(args, *filter.ContextType)
	}
	if filter.ContextID != nil {
		where = append(where, fmt.Sprintf("context_id = $%d", len(args)+1))
		args = append(args, *filter.ContextID)
	}
	if !filter.IncludeLocked {
		where = append(where, "is_locked = FALSE")
	}

	query := fmt.Sprintf(`SELECT %s FROM forum_categories WHERE %s ORDER BY order_index ASC, created_at ASC`,
		categoryColumns, strings.Join(where, " AND "))
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetByID returns a category by identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM forum_categories WHERE id = $1", categoryColumns)
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now
	if len(category.Metadata) == 0 {
		category.Metadata = []byte("{}")
	}
	query := `INSERT INTO forum_categories (id, title, description, context_type, context_id, visibility, created_by, is_locked, order_index, metadata, created_at, updated_at)
VALUES (:id, :title, :description, :context_type, :context_id, :visibility, :created_by, :is_locked, :order_index, :metadata, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update modifies an existing category. Ownership never changes.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	query := `UPDATE forum_categories SET title = :title, description = :description, visibility = :visibility,
is_locked = :is_locked, order_index = :order_index, metadata = :metadata, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category. Referential rules on threads are enforced by
// the database, never cascaded implicitly from here.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM forum_categories WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
