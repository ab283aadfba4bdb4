package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type courseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}

type policyCategoryRepository interface {
	GetByID(ctx context.Context, id string) (*models.Category, error)
}

type policyThreadRepository interface {
	GetByID(ctx context.Context, id string) (*models.Thread, error)
}

// PolicyService derives moderator rights at call time instead of storing an
// ACL: category owner first, then the linked course's teacher. Rights are
// re-evaluated on every moderation call so ownership or teacher
// reassignment takes effect immediately.
type PolicyService struct {
	categories policyCategoryRepository
	threads    policyThreadRepository
	courses    courseRepository
	logger     *zap.Logger
}

// NewPolicyService constructs the policy evaluator.
func NewPolicyService(categories policyCategoryRepository, threads policyThreadRepository, courses courseRepository, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{categories: categories, threads: threads, courses: courses, logger: logger}
}

// HasModeratorRights reports whether the actor may moderate the thread.
func (p *PolicyService) HasModeratorRights(ctx context.Context, threadID, actorEmail string) (bool, error) {
	thread, err := p.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "thread not found")
		}
		p.logger.Error("failed to load thread for policy check", zap.String("thread_id", threadID), zap.Error(err))
		return false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load thread")
	}
	return p.ModeratorForThread(ctx, thread, actorEmail)
}

// ModeratorForThread evaluates the ladder against an already-loaded thread.
func (p *PolicyService) ModeratorForThread(ctx context.Context, thread *models.Thread, actorEmail string) (bool, error) {
	category, err := p.categories.GetByID(ctx, thread.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		p.logger.Error("failed to load category for policy check", zap.String("category_id", thread.CategoryID), zap.Error(err))
		return false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load category")
	}

	if strings.EqualFold(category.CreatedBy, actorEmail) {
		return true, nil
	}

	courseID := resolveCourseID(category, thread)
	if courseID == "" {
		return false, nil
	}

	course, err := p.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		p.logger.Error("failed to load course for policy check", zap.String("course_id", courseID), zap.Error(err))
		return false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load course")
	}

	return strings.EqualFold(course.TeacherEmail, actorEmail), nil
}

// resolveCourseID picks the course the thread is scoped to: the category's
// context wins, the thread's own context is the fallback.
func resolveCourseID(category *models.Category, thread *models.Thread) string {
	if category.ContextType != nil && *category.ContextType == models.ContextCourse && category.ContextID != nil {
		return *category.ContextID
	}
	if thread.ContextType != nil && *thread.ContextType == models.ContextCourse && thread.ContextID != nil {
		return *thread.ContextID
	}
	return ""
}
