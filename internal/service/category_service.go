package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/events"
	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const categoryCachePrefix = "forum:categories"

// CategoryService handles category lifecycle. Mutations are strictly
// owner-only; there is no moderator fallback at category level.
type CategoryService struct {
	repo              categoryRepository
	cache             listCache
	cacheTTL          time.Duration
	defaultVisibility models.CategoryVisibility
	bus               events.Bus
	validator         *validator.Validate
	logger            *zap.Logger
	metrics           *MetricsService
}

// NewCategoryService constructs the service.
func NewCategoryService(repo categoryRepository, cache listCache, bus events.Bus, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CategoryService{
		repo:              repo,
		cache:             cache,
		cacheTTL:          5 * time.Minute,
		defaultVisibility: models.VisibilityCourse,
		bus:               bus,
		validator:         validate,
		logger:            logger,
	}
	svc.validator.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		switch models.CategoryVisibility(fl.Field().String()) {
		case models.VisibilityCourse, models.VisibilityInstitution, models.VisibilityPublic:
			return true
		default:
			return false
		}
	})
	return svc
}

// WithDefaultVisibility overrides the visibility applied when a create
// payload omits it.
func (s *CategoryService) WithDefaultVisibility(v string) *CategoryService {
	switch models.CategoryVisibility(v) {
	case models.VisibilityCourse, models.VisibilityInstitution, models.VisibilityPublic:
		s.defaultVisibility = models.CategoryVisibility(v)
	}
	return s
}

// WithCacheTTL overrides the category list cache TTL.
func (s *CategoryService) WithCacheTTL(ttl time.Duration) *CategoryService {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithMetrics attaches cache instrumentation.
func (s *CategoryService) WithMetrics(m *MetricsService) *CategoryService {
	s.metrics = m
	return s
}

// CategoryListRequest describes filters for listing categories.
type CategoryListRequest struct {
	ContextType   *string `json:"context_type"`
	ContextID     *string `json:"context_id"`
	IncludeLocked bool    `json:"include_locked"`
}

// CreateCategoryRequest describes the create payload.
type CreateCategoryRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	ContextType *string         `json:"context_type"`
	ContextID   *string         `json:"context_id"`
	Visibility  string          `json:"visibility" validate:"omitempty,visibility"`
	OrderIndex  int             `json:"order_index"`
	Metadata    json.RawMessage `json:"metadata"`
}

// UpdateCategoryRequest describes the update payload. Only provided fields
// are applied; an empty diff returns the current row untouched.
type UpdateCategoryRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Visibility  *string         `json:"visibility"`
	IsLocked    *bool           `json:"is_locked"`
	OrderIndex  *int            `json:"order_index"`
	Metadata    json.RawMessage `json:"metadata"`
}

// List returns categories matching the filters. Listing is public within
// normal query scoping; no policy check applies. The second return reports
// a cache hit.
func (s *CategoryService) List(ctx context.Context, req CategoryListRequest) ([]models.Category, bool, error) {
	key := s.cacheKey(req)
	if s.cache != nil {
		start := time.Now()
		var cached []models.Category
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return cached, true, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
	}

	filter := models.CategoryFilter{
		ContextType:   req.ContextType,
		ContextID:     req.ContextID,
		IncludeLocked: req.IncludeLocked,
	}
	categories, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list categories", zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list categories")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, categories, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache category list", zap.Error(err))
		}
	}
	return categories, false, nil
}

// Get returns a category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		s.logger.Error("failed to load category", zap.String("category_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load category")
	}
	return category, nil
}

// Create registers a new category owned by the acting identity.
func (s *CategoryService) Create(ctx context.Context, actorEmail string, req CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	visibility := s.defaultVisibility
	if req.Visibility != "" {
		visibility = models.CategoryVisibility(req.Visibility)
	}
	category := &models.Category{
		Title:       req.Title,
		Description: req.Description,
		ContextType: req.ContextType,
		ContextID:   req.ContextID,
		Visibility:  visibility,
		CreatedBy:   actorEmail,
		OrderIndex:  req.OrderIndex,
		Metadata:    req.Metadata,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		s.logger.Error("failed to create category", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create category")
	}
	s.invalidateListCache(ctx)
	emitEvent(ctx, s.bus, s.logger, events.CategoryCreated, events.CategoryPayload{CategoryID: category.ID})
	return category, nil
}

// Update modifies a category. Requires strict ownership. A no-op diff
// returns the current state without touching storage or emitting an event.
func (s *CategoryService) Update(ctx context.Context, id, actorEmail string, req UpdateCategoryRequest) (*models.Category, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != actorEmail {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPermissions, "only the category owner may modify it")
	}
	if req.Visibility != nil {
		probe := CreateCategoryRequest{Title: existing.Title, Visibility: *req.Visibility}
		if err := s.validator.Struct(probe); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visibility")
		}
	}

	changed := false
	if req.Title != nil && *req.Title != existing.Title {
		existing.Title = *req.Title
		changed = true
	}
	if req.Description != nil && *req.Description != existing.Description {
		existing.Description = *req.Description
		changed = true
	}
	if req.Visibility != nil && models.CategoryVisibility(*req.Visibility) != existing.Visibility {
		existing.Visibility = models.CategoryVisibility(*req.Visibility)
		changed = true
	}
	if req.IsLocked != nil && *req.IsLocked != existing.IsLocked {
		existing.IsLocked = *req.IsLocked
		changed = true
	}
	if req.OrderIndex != nil && *req.OrderIndex != existing.OrderIndex {
		existing.OrderIndex = *req.OrderIndex
		changed = true
	}
	if len(req.Metadata) > 0 && !bytes.Equal(req.Metadata, existing.Metadata) {
		existing.Metadata = req.Metadata
		changed = true
	}
	if !changed {
		return existing, nil
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		s.logger.Error("failed to update category", zap.String("category_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update category")
	}
	s.invalidateListCache(ctx)
	emitEvent(ctx, s.bus, s.logger, events.CategoryUpdated, events.CategoryPayload{CategoryID: existing.ID})
	return existing, nil
}

// Delete removes a category. Requires strict ownership; the database's
// referential rules decide what happens to contained threads.
func (s *CategoryService) Delete(ctx context.Context, id, actorEmail string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy != actorEmail {
		return appErrors.Clone(appErrors.ErrInsufficientPermissions, "only the category owner may delete it")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete category", zap.String("category_id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete category")
	}
	s.invalidateListCache(ctx)
	emitEvent(ctx, s.bus, s.logger, events.CategoryDeleted, events.CategoryPayload{CategoryID: id})
	return nil
}

func (s *CategoryService) cacheKey(req CategoryListRequest) string {
	ctxType, ctxID := "", ""
	if req.ContextType != nil {
		ctxType = *req.ContextType
	}
	if req.ContextID != nil {
		ctxID = *req.ContextID
	}
	return fmt.Sprintf("%s:%s:%s:%t", categoryCachePrefix, ctxType, ctxID, req.IncludeLocked)
}

func (s *CategoryService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, categoryCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate category cache", zap.Error(err))
	}
}
