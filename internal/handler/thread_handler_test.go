package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-forum-api/internal/middleware"
	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/internal/service"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type threadServiceMock struct {
	listResp    []models.Thread
	detailResp  *models.ThreadDetail
	threadResp  *models.Thread
	subResp     *models.Subscription
	err         error
	lastPinned  *bool
	lastLocked  *bool
	lastActor   string
	deleteCalls int
}

func (m *threadServiceMock) List(ctx context.Context, categoryID string, includeLocked bool) ([]models.Thread, error) {
	return m.listResp, m.err
}

func (m *threadServiceMock) Create(ctx context.Context, actorEmail string, req service.CreateThreadRequest) (*models.ThreadDetail, error) {
	m.lastActor = actorEmail
	return m.detailResp, m.err
}

func (m *threadServiceMock) Detail(ctx context.Context, threadID, actorEmail string) (*models.ThreadDetail, error) {
	m.lastActor = actorEmail
	return m.detailResp, m.err
}

func (m *threadServiceMock) Update(ctx context.Context, threadID, actorEmail string, req service.UpdateThreadRequest) (*models.Thread, error) {
	return m.threadResp, m.err
}

func (m *threadServiceMock) Delete(ctx context.Context, threadID, actorEmail string) error {
	m.deleteCalls++
	return m.err
}

func (m *threadServiceMock) SetPinned(ctx context.Context, threadID, actorEmail string, pinned bool) (*models.Thread, error) {
	m.lastPinned = &pinned
	m.lastActor = actorEmail
	return m.threadResp, m.err
}

func (m *threadServiceMock) SetLocked(ctx context.Context, threadID, actorEmail string, locked bool) (*models.Thread, error) {
	m.lastLocked = &locked
	return m.threadResp, m.err
}

func (m *threadServiceMock) Subscribe(ctx context.Context, threadID, userEmail string) (*models.Subscription, error) {
	return m.subResp, m.err
}

func (m *threadServiceMock) Unsubscribe(ctx context.Context, threadID, userEmail string) error {
	return m.err
}

type transcriptServiceMock struct {
	doc        *service.TranscriptDocument
	err        error
	lastFormat string
}

func (m *transcriptServiceMock) Transcript(ctx context.Context, threadID, actorEmail, format string) (*service.TranscriptDocument, error) {
	m.lastFormat = format
	return m.doc, m.err
}

func threadTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "thread-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Email: "student@school.edu", Role: models.RoleStudent}
}

func TestThreadHandlerPin(t *testing.T) {
	mockSvc := &threadServiceMock{threadResp: &models.Thread{ID: "thread-1", IsPinned: true}}
	handler := NewThreadHandler(mockSvc, nil)

	c, w := threadTestContext(t, http.MethodPost, "/threads/thread-1/pin", nil, studentClaims())
	handler.Pin(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastPinned)
	assert.True(t, *mockSvc.lastPinned)
	assert.Equal(t, "student@school.edu", mockSvc.lastActor)
}

func TestThreadHandlerUnpinPassesFalse(t *testing.T) {
	mockSvc := &threadServiceMock{threadResp: &models.Thread{ID: "thread-1"}}
	handler := NewThreadHandler(mockSvc, nil)

	c, w := threadTestContext(t, http.MethodDelete, "/threads/thread-1/pin", nil, studentClaims())
	handler.Unpin(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastPinned)
	assert.False(t, *mockSvc.lastPinned)
}

func TestThreadHandlerPinForbidden(t *testing.T) {
	mockSvc := &threadServiceMock{err: appErrors.ErrInsufficientPermissions}
	handler := NewThreadHandler(mockSvc, nil)

	c, w := threadTestContext(t, http.MethodPost, "/threads/thread-1/pin", nil, studentClaims())
	handler.Pin(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestThreadHandlerCreateInvalidBody(t *testing.T) {
	handler := NewThreadHandler(&threadServiceMock{}, nil)

	c, w := threadTestContext(t, http.MethodPost, "/categories/cat-1/threads", []byte(`{"title":`), studentClaims())
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThreadHandlerSubscribe(t *testing.T) {
	mockSvc := &threadServiceMock{subResp: &models.Subscription{ThreadID: "thread-1", UserEmail: "student@school.edu", Notify: true}}
	handler := NewThreadHandler(mockSvc, nil)

	c, w := threadTestContext(t, http.MethodPut, "/threads/thread-1/subscription", nil, studentClaims())
	handler.Subscribe(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "student@school.edu")
}

func TestThreadHandlerUnsubscribeNoContent(t *testing.T) {
	handler := NewThreadHandler(&threadServiceMock{}, nil)

	c, w := threadTestContext(t, http.MethodDelete, "/threads/thread-1/subscription", nil, studentClaims())
	handler.Unsubscribe(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestThreadHandlerTranscript(t *testing.T) {
	exports := &transcriptServiceMock{doc: &service.TranscriptDocument{
		FileName:    "thread-thread-1-transcript.csv",
		ContentType: "text/csv",
		Content:     []byte("#,Author\n"),
	}}
	handler := NewThreadHandler(&threadServiceMock{}, exports)

	c, w := threadTestContext(t, http.MethodGet, "/threads/thread-1/transcript", nil, studentClaims())
	handler.Transcript(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exports.lastFormat, "format defaults to csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript.csv")
}
