package models

import (
	"encoding/json"
	"time"
)

// Thread is a single discussion topic inside a category.
// CategoryID is immutable after creation.
type Thread struct {
	ID             string          `db:"id" json:"id"`
	CategoryID     string          `db:"category_id" json:"category_id"`
	Title          string          `db:"title" json:"title"`
	AuthorEmail    string          `db:"author_email" json:"author_email"`
	Content        string          `db:"content" json:"content"`
	RichContent    json.RawMessage `db:"rich_content" json:"rich_content,omitempty"`
	ContextType    *string         `db:"context_type" json:"context_type,omitempty"`
	ContextID      *string         `db:"context_id" json:"context_id,omitempty"`
	IsPinned       bool            `db:"is_pinned" json:"is_pinned"`
	IsLocked       bool            `db:"is_locked" json:"is_locked"`
	LastActivityAt time.Time       `db:"last_activity_at" json:"last_activity_at"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ThreadFilter narrows thread listings within a category.
type ThreadFilter struct {
	CategoryID    string
	IncludeLocked bool
}

// ThreadDetail is the composed read model returned after thread and post
// mutations: the thread, its visible posts oldest-first and, when the
// caller is known, their subscription row.
type ThreadDetail struct {
	Thread       Thread        `json:"thread"`
	Posts        []Post        `json:"posts"`
	Subscription *Subscription `json:"subscription"`
}
