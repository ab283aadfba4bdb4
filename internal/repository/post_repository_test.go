package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

func postRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "thread_id", "parent_post_id", "author_email", "content", "rich_content", "is_deleted", "deleted_at", "edited_at", "created_at", "updated_at"}).
		AddRow("post-1", "thread-1", nil, "peer@school.edu", "First reply", nil, false, nil, nil, now, now)
}

func TestPostRepositoryListVisibleFiltersDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_posts WHERE thread_id = $1 AND is_deleted = FALSE ORDER BY created_at ASC")).
		WithArgs("thread-1").
		WillReturnRows(postRows())

	posts, err := repo.ListVisibleByThread(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryGetReturnsDeletedRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "thread_id", "parent_post_id", "author_email", "content", "rich_content", "is_deleted", "deleted_at", "edited_at", "created_at", "updated_at"}).
		AddRow("post-1", "thread-1", nil, "peer@school.edu", "gone", nil, true, now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_posts WHERE id = $1")).
		WithArgs("post-1").
		WillReturnRows(rows)

	post, err := repo.GetByID(context.Background(), "post-1")
	require.NoError(t, err)
	assert.True(t, post.IsDeleted, "lookups surface deleted rows; visibility is a service decision")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec("INSERT INTO forum_posts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	post := &models.Post{ThreadID: "thread-1", AuthorEmail: "peer@school.edu", Content: "reply"}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryUpdateStampsEditedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE forum_posts SET content = `).
		WillReturnResult(sqlmock.NewResult(1, 1))

	post := &models.Post{ID: "post-1", ThreadID: "thread-1", Content: "edited"}
	require.NoError(t, repo.Update(context.Background(), post))
	assert.NotNil(t, post.EditedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE forum_posts SET is_deleted = TRUE, deleted_at = $2, updated_at = $2 WHERE id = $1")).
		WithArgs("post-1", ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "post-1", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListReactions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"post_id", "reaction", "count"}).
		AddRow("post-1", "thumbsup", 3).
		AddRow("post-1", "heart", 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_post_reactions pr")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	reactions, err := repo.ListReactionsByThread(context.Background(), "thread-1")
	require.NoError(t, err)
	require.Len(t, reactions, 2)
	assert.Equal(t, 3, reactions[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
