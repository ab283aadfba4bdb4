package models

import (
	"encoding/json"
	"time"
)

// CategoryVisibility scopes who can discover a category.
type CategoryVisibility string

const (
	VisibilityCourse      CategoryVisibility = "course"
	VisibilityInstitution CategoryVisibility = "institution"
	VisibilityPublic      CategoryVisibility = "public"
)

// ContextCourse marks a category or thread as scoped to a course.
const ContextCourse = "course"

// Category groups discussion threads, optionally scoped to a course.
type Category struct {
	ID          string             `db:"id" json:"id"`
	Title       string             `db:"title" json:"title"`
	Description string             `db:"description" json:"description"`
	ContextType *string            `db:"context_type" json:"context_type,omitempty"`
	ContextID   *string            `db:"context_id" json:"context_id,omitempty"`
	Visibility  CategoryVisibility `db:"visibility" json:"visibility"`
	CreatedBy   string             `db:"created_by" json:"created_by"`
	IsLocked    bool               `db:"is_locked" json:"is_locked"`
	OrderIndex  int                `db:"order_index" json:"order_index"`
	Metadata    json.RawMessage    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	ContextType   *string
	ContextID     *string
	IncludeLocked bool
}
