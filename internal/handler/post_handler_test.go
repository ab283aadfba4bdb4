package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/internal/service"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type postServiceMock struct {
	detailResp *models.ThreadDetail
	err        error
	lastActor  string
	lastReq    service.AddPostRequest
}

func (m *postServiceMock) Add(ctx context.Context, threadID, actorEmail string, req service.AddPostRequest) (*models.ThreadDetail, error) {
	m.lastActor = actorEmail
	m.lastReq = req
	return m.detailResp, m.err
}

func (m *postServiceMock) Update(ctx context.Context, postID, actorEmail string, req service.UpdatePostRequest) (*models.ThreadDetail, error) {
	m.lastActor = actorEmail
	return m.detailResp, m.err
}

func (m *postServiceMock) Delete(ctx context.Context, postID, actorEmail string) (*models.ThreadDetail, error) {
	m.lastActor = actorEmail
	return m.detailResp, m.err
}

func TestPostHandlerAddCreated(t *testing.T) {
	mockSvc := &postServiceMock{detailResp: &models.ThreadDetail{Thread: models.Thread{ID: "thread-1"}}}
	handler := NewPostHandler(mockSvc)

	body := []byte(`{"content":"A reply"}`)
	c, w := threadTestContext(t, http.MethodPost, "/threads/thread-1/posts", body, studentClaims())
	handler.Add(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student@school.edu", mockSvc.lastActor)
	assert.Equal(t, "A reply", mockSvc.lastReq.Content)
}

func TestPostHandlerAddLockedThread(t *testing.T) {
	mockSvc := &postServiceMock{err: appErrors.ErrThreadLocked}
	handler := NewPostHandler(mockSvc)

	body := []byte(`{"content":"too late"}`)
	c, w := threadTestContext(t, http.MethodPost, "/threads/thread-1/posts", body, studentClaims())
	handler.Add(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "THREAD_LOCKED")
}

func TestPostHandlerAddInvalidBody(t *testing.T) {
	handler := NewPostHandler(&postServiceMock{})

	c, w := threadTestContext(t, http.MethodPost, "/threads/thread-1/posts", []byte(`{`), studentClaims())
	handler.Add(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandlerUpdateNotAuthor(t *testing.T) {
	mockSvc := &postServiceMock{err: appErrors.ErrInsufficientPermissions}
	handler := NewPostHandler(mockSvc)

	body := []byte(`{"content":"rewrite"}`)
	c, w := threadTestContext(t, http.MethodPut, "/posts/post-1", body, studentClaims())
	handler.Update(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostHandlerDeleteReturnsDetail(t *testing.T) {
	mockSvc := &postServiceMock{detailResp: &models.ThreadDetail{Thread: models.Thread{ID: "thread-1"}}}
	handler := NewPostHandler(mockSvc)

	c, w := threadTestContext(t, http.MethodDelete, "/posts/post-1", nil, studentClaims())
	handler.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "thread-1")
	assert.Equal(t, "student@school.edu", mockSvc.lastActor)
}
