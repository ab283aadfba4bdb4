package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-forum-api/internal/middleware"
	"github.com/noah-isme/lms-forum-api/internal/service"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
	"github.com/noah-isme/lms-forum-api/pkg/response"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	service *service.CategoryService
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List discussion categories
// @Tags Categories
// @Produce json
// @Param context_type query string false "Scope type, e.g. course"
// @Param context_id query string false "Scope identifier"
// @Param include_locked query bool false "Include locked categories"
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	var req service.CategoryListRequest
	if v := strings.TrimSpace(c.Query("context_type")); v != "" {
		req.ContextType = &v
	}
	if v := strings.TrimSpace(c.Query("context_id")); v != "" {
		req.ContextID = &v
	}
	req.IncludeLocked = c.Query("include_locked") == "true"

	categories, cacheHit, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, categories, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a category by id
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Create godoc
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.service.Create(c.Request.Context(), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update a category (owner only)
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body service.UpdateCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.service.Update(c.Request.Context(), c.Param("id"), actorEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete a category (owner only)
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 204
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorEmail(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
