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

func TestSubscriptionRepositoryUpsertOnConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO forum_thread_subscriptions .*ON CONFLICT \(thread_id, user_email\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Subscription{ThreadID: "thread-1", UserEmail: "peer@school.edu", Notify: true}
	require.NoError(t, repo.Upsert(context.Background(), sub))
	assert.NotEmpty(t, sub.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM forum_thread_subscriptions WHERE thread_id = $1 AND user_email = $2")).
		WithArgs("thread-1", "peer@school.edu").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "thread-1", "peer@school.edu"), "deleting an absent row is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepositoryListNotifiable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "thread_id", "user_email", "notify", "created_at", "updated_at"}).
		AddRow("sub-1", "thread-1", "peer@school.edu", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_thread_subscriptions WHERE thread_id = $1 AND notify = TRUE ORDER BY created_at ASC")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	subs, err := repo.ListNotifiable(context.Background(), "thread-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "peer@school.edu", subs[0].UserEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "thread_id", "user_email", "notify", "created_at", "updated_at"}).
		AddRow("sub-1", "thread-1", "peer@school.edu", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forum_thread_subscriptions WHERE thread_id = $1 AND user_email = $2")).
		WithArgs("thread-1", "peer@school.edu").
		WillReturnRows(rows)

	sub, err := repo.Get(context.Background(), "thread-1", "peer@school.edu")
	require.NoError(t, err)
	assert.True(t, sub.Notify)
	assert.NoError(t, mock.ExpectationsWereMet())
}
