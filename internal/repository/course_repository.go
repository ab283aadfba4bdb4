package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-forum-api/internal/models"
)

// CourseRepository is a read-only gateway into the courses table, used to
// resolve the teacher half of the moderator ladder.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// GetByID returns a course row.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, teacher_email, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}
