package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func categoryRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "title", "description", "context_type", "context_id", "visibility", "created_by", "is_locked", "order_index", "metadata", "created_at", "updated_at"}).
		AddRow("cat-1", "General", "", "course", "course-1", "course", "owner@school.edu", false, 0, []byte("{}"), now, now)
}

func TestCategoryRepositoryListExcludesLocked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, context_type, context_id, visibility, created_by, is_locked, order_index, metadata, created_at, updated_at FROM forum_categories WHERE 1=1 AND is_locked = FALSE ORDER BY order_index ASC, created_at ASC")).
		WillReturnRows(categoryRows())

	categories, err := repo.List(context.Background(), models.CategoryFilter{})
	require.NoError(t, err)
	assert.Len(t, categories, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryListByContext(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND context_type = $1 AND context_id = $2 AND is_locked = FALSE")).
		WithArgs("course", "course-1").
		WillReturnRows(categoryRows())

	contextType, contextID := "course", "course-1"
	categories, err := repo.List(context.Background(), models.CategoryFilter{ContextType: &contextType, ContextID: &contextID})
	require.NoError(t, err)
	assert.Len(t, categories, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec("INSERT INTO forum_categories").
		WillReturnResult(sqlmock.NewResult(1, 1))

	category := &models.Category{Title: "General", CreatedBy: "owner@school.edu", Visibility: models.VisibilityCourse}
	require.NoError(t, repo.Create(context.Background(), category))
	assert.NotEmpty(t, category.ID)
	assert.Equal(t, []byte("{}"), []byte(category.Metadata))
	assert.False(t, category.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryUpdateLeavesOwnerAlone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	// The statement must not touch created_by or context columns.
	mock.ExpectExec(`UPDATE forum_categories SET title = [^,]+, description = [^,]+, visibility = [^,]+,\s*is_locked`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	category := &models.Category{ID: "cat-1", Title: "Renamed", Visibility: models.VisibilityCourse, Metadata: []byte("{}")}
	require.NoError(t, repo.Update(context.Background(), category))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM forum_categories WHERE id = $1")).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "cat-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
