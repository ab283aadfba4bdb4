package models

import (
	"encoding/json"
	"time"
)

// Post is one message within a thread. Posts are soft-deleted so reply
// chains keep their parents; ParentPostID is a weak lookup reference.
type Post struct {
	ID           string          `db:"id" json:"id"`
	ThreadID     string          `db:"thread_id" json:"thread_id"`
	ParentPostID *string         `db:"parent_post_id" json:"parent_post_id,omitempty"`
	AuthorEmail  string          `db:"author_email" json:"author_email"`
	Content      string          `db:"content" json:"content"`
	RichContent  json.RawMessage `db:"rich_content" json:"rich_content,omitempty"`
	IsDeleted    bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	EditedAt     *time.Time      `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`

	// Reactions live in forum_post_reactions, owned by an external
	// collaborator; they are attached here by join on detail reads.
	Reactions []PostReaction `db:"-" json:"reactions,omitempty"`
}

// PostReaction is an aggregated reaction count for a post.
type PostReaction struct {
	PostID   string `db:"post_id" json:"post_id"`
	Reaction string `db:"reaction" json:"reaction"`
	Count    int    `db:"count" json:"count"`
}
