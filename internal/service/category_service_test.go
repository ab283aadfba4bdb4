package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/events"
	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type cacheStub struct {
	store       map[string][]byte
	getErr      error
	setErr      error
	invalidated []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: map[string][]byte{}}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	s.store = map[string][]byte{}
	return nil
}

func TestCategoryCreateDefaultsVisibility(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{}}
	bus := &captureBus{}
	svc := NewCategoryService(repo, nil, bus, nil, zap.NewNop())

	category, err := svc.Create(context.Background(), "owner@school.edu", CreateCategoryRequest{Title: "General"})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityCourse, category.Visibility)
	assert.Equal(t, "owner@school.edu", category.CreatedBy)

	require.Len(t, bus.emitted, 1)
	assert.Equal(t, events.CategoryCreated, bus.emitted[0].name)
	payload := bus.emitted[0].payload.(events.CategoryPayload)
	assert.Equal(t, category.ID, payload.CategoryID)
}

func TestCategoryCreateRejectsUnknownVisibility(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{}}
	svc := NewCategoryService(repo, nil, &captureBus{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "owner@school.edu", CreateCategoryRequest{Title: "General", Visibility: "secret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCategoryUpdateRequiresOwnership(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{
		"cat-1": {ID: "cat-1", Title: "General", CreatedBy: "owner@school.edu"},
	}}
	bus := &captureBus{}
	svc := NewCategoryService(repo, nil, bus, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "cat-1", "teacher@school.edu", UpdateCategoryRequest{Title: strPtr("Renamed")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientPermissions.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updates)
	assert.Empty(t, bus.emitted, "a denied update must not emit")
}

func TestCategoryUpdateNoopDiff(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{
		"cat-1": {ID: "cat-1", Title: "General", CreatedBy: "owner@school.edu", Visibility: models.VisibilityCourse},
	}}
	bus := &captureBus{}
	svc := NewCategoryService(repo, nil, bus, nil, zap.NewNop())

	category, err := svc.Update(context.Background(), "cat-1", "owner@school.edu", UpdateCategoryRequest{Title: strPtr("General")})
	require.NoError(t, err)
	assert.Equal(t, "General", category.Title)
	assert.Empty(t, repo.updates, "an empty diff must not touch storage")
	assert.Empty(t, bus.emitted)
}

func TestCategoryUpdateAppliesDiffAndInvalidatesCache(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{
		"cat-1": {ID: "cat-1", Title: "General", CreatedBy: "owner@school.edu", Visibility: models.VisibilityCourse},
	}}
	bus := &captureBus{}
	cache := newCacheStub()
	svc := NewCategoryService(repo, cache, bus, nil, zap.NewNop())

	category, err := svc.Update(context.Background(), "cat-1", "owner@school.edu", UpdateCategoryRequest{
		Title:    strPtr("Announcements"),
		IsLocked: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Announcements", category.Title)
	assert.True(t, category.IsLocked)
	require.Len(t, repo.updates, 1)
	require.Len(t, bus.emitted, 1)
	assert.Equal(t, events.CategoryUpdated, bus.emitted[0].name)
	assert.NotEmpty(t, cache.invalidated)
}

func TestCategoryDeleteRequiresOwnership(t *testing.T) {
	repo := &categoryRepoStub{categories: map[string]*models.Category{
		"cat-1": {ID: "cat-1", Title: "General", CreatedBy: "owner@school.edu"},
	}}
	svc := NewCategoryService(repo, nil, &captureBus{}, nil, zap.NewNop())

	err := svc.Delete(context.Background(), "cat-1", "someone@school.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientPermissions.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deletes)

	require.NoError(t, svc.Delete(context.Background(), "cat-1", "owner@school.edu"))
	assert.Equal(t, []string{"cat-1"}, repo.deletes)
}

func TestCategoryListUsesCache(t *testing.T) {
	repo := &categoryRepoStub{listResult: []models.Category{{ID: "cat-1", Title: "General"}}}
	cache := newCacheStub()
	svc := NewCategoryService(repo, cache, &captureBus{}, nil, zap.NewNop())

	first, hit, err := svc.List(context.Background(), CategoryListRequest{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 1)

	second, hit, err := svc.List(context.Background(), CategoryListRequest{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls, "a cache hit must not query the repository")
}

func TestCategoryGetUnknown(t *testing.T) {
	svc := NewCategoryService(&categoryRepoStub{categories: map[string]*models.Category{}}, nil, &captureBus{}, nil, zap.NewNop())
	_, err := svc.Get(context.Background(), "cat-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func boolPtr(v bool) *bool { return &v }
