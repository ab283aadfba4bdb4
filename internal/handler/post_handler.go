package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/internal/service"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
	"github.com/noah-isme/lms-forum-api/pkg/response"
)

type postService interface {
	Add(ctx context.Context, threadID, actorEmail string, req service.AddPostRequest) (*models.ThreadDetail, error)
	Update(ctx context.Context, postID, actorEmail string, req service.UpdatePostRequest) (*models.ThreadDetail, error)
	Delete(ctx context.Context, postID, actorEmail string) (*models.ThreadDetail, error)
}

// PostHandler handles post endpoints.
type PostHandler struct {
	service postService
}

// NewPostHandler constructs a post handler.
func NewPostHandler(svc postService) *PostHandler {
	return &PostHandler{service: svc}
}

// Add godoc
// @Summary Add a post to a thread
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param payload body service.AddPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /threads/{id}/posts [post]
func (h *PostHandler) Add(c *gin.Context) {
	var req service.AddPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Add(c.Request.Context(), c.Param("id"), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Edit a post (author only)
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body service.UpdatePostRequest true "Post payload"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	var req service.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Remove a post (author only, soft delete)
// @Tags Posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	detail, err := h.service.Delete(c.Request.Context(), c.Param("id"), actorEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
