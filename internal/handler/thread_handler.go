package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/internal/service"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
	"github.com/noah-isme/lms-forum-api/pkg/response"
)

type threadService interface {
	List(ctx context.Context, categoryID string, includeLocked bool) ([]models.Thread, error)
	Create(ctx context.Context, actorEmail string, req service.CreateThreadRequest) (*models.ThreadDetail, error)
	Detail(ctx context.Context, threadID, actorEmail string) (*models.ThreadDetail, error)
	Update(ctx context.Context, threadID, actorEmail string, req service.UpdateThreadRequest) (*models.Thread, error)
	Delete(ctx context.Context, threadID, actorEmail string) error
	SetPinned(ctx context.Context, threadID, actorEmail string, pinned bool) (*models.Thread, error)
	SetLocked(ctx context.Context, threadID, actorEmail string, locked bool) (*models.Thread, error)
	Subscribe(ctx context.Context, threadID, userEmail string) (*models.Subscription, error)
	Unsubscribe(ctx context.Context, threadID, userEmail string) error
}

type transcriptService interface {
	Transcript(ctx context.Context, threadID, actorEmail, format string) (*service.TranscriptDocument, error)
}

// ThreadHandler handles thread, moderation and subscription endpoints.
type ThreadHandler struct {
	service threadService
	exports transcriptService
}

// NewThreadHandler constructs a thread handler.
func NewThreadHandler(svc threadService, exports transcriptService) *ThreadHandler {
	return &ThreadHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List threads in a category
// @Tags Threads
// @Produce json
// @Param id path string true "Category ID"
// @Param include_locked query bool false "Include locked threads"
// @Success 200 {object} response.Envelope
// @Router /categories/{id}/threads [get]
func (h *ThreadHandler) List(c *gin.Context) {
	includeLocked := c.Query("include_locked") == "true"
	threads, err := h.service.List(c.Request.Context(), c.Param("id"), includeLocked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, threads, nil)
}

// Create godoc
// @Summary Create a thread in a category
// @Tags Threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body service.CreateThreadRequest true "Thread payload"
// @Success 201 {object} response.Envelope
// @Router /categories/{id}/threads [post]
func (h *ThreadHandler) Create(c *gin.Context) {
	var req service.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.CategoryID = c.Param("id")
	detail, err := h.service.Create(c.Request.Context(), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get a thread with its visible posts
// @Tags Threads
// @Produce json
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id} [get]
func (h *ThreadHandler) Get(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"), actorEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update a thread (author or moderator)
// @Tags Threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param payload body service.UpdateThreadRequest true "Thread payload"
// @Success 200 {object} response.Envelope
// @Router /threads/{id} [put]
func (h *ThreadHandler) Update(c *gin.Context) {
	var req service.UpdateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thread, err := h.service.Update(c.Request.Context(), c.Param("id"), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Delete godoc
// @Summary Delete a thread (author or moderator)
// @Tags Threads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 204
// @Router /threads/{id} [delete]
func (h *ThreadHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorEmail(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Pin godoc
// @Summary Pin a thread (moderator only)
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id}/pin [post]
func (h *ThreadHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

// Unpin godoc
// @Summary Unpin a thread (moderator only)
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id}/pin [delete]
func (h *ThreadHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

// Lock godoc
// @Summary Lock a thread against new posts (moderator only)
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id}/lock [post]
func (h *ThreadHandler) Lock(c *gin.Context) {
	h.setLocked(c, true)
}

// Unlock godoc
// @Summary Unlock a thread (moderator only)
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id}/lock [delete]
func (h *ThreadHandler) Unlock(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *ThreadHandler) setPinned(c *gin.Context, pinned bool) {
	thread, err := h.service.SetPinned(c.Request.Context(), c.Param("id"), actorEmail(c), pinned)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

func (h *ThreadHandler) setLocked(c *gin.Context, locked bool) {
	thread, err := h.service.SetLocked(c.Request.Context(), c.Param("id"), actorEmail(c), locked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Subscribe godoc
// @Summary Subscribe the caller to a thread
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} response.Envelope
// @Router /threads/{id}/subscription [put]
func (h *ThreadHandler) Subscribe(c *gin.Context) {
	sub, err := h.service.Subscribe(c.Request.Context(), c.Param("id"), actorEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Unsubscribe godoc
// @Summary Remove the caller's thread subscription
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 204
// @Router /threads/{id}/subscription [delete]
func (h *ThreadHandler) Unsubscribe(c *gin.Context) {
	if err := h.service.Unsubscribe(c.Request.Context(), c.Param("id"), actorEmail(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transcript godoc
// @Summary Export a thread transcript (moderator only)
// @Tags Moderation
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200
// @Router /threads/{id}/transcript [get]
func (h *ThreadHandler) Transcript(c *gin.Context) {
	format := c.DefaultQuery("format", service.TranscriptFormatCSV)
	doc, err := h.exports.Transcript(c.Request.Context(), c.Param("id"), actorEmail(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
