package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-datatable/internal/middleware"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
	"github.com/noah-isme/sma-adp-datatable/pkg/response"
)

type viewService interface {
	List(ctx context.Context, table string) ([]models.View, error)
	Create(ctx context.Context, table string, req models.CreateViewRequest, userID string) (*models.View, error)
	Update(ctx context.Context, table, id string, req models.UpdateViewRequest) (*models.View, error)
	Delete(ctx context.Context, table, id string) error
}

// ViewHandler exposes saved view endpoints. Each method returns the handler
// bound to one table.
type ViewHandler struct {
	views viewService
}

// NewViewHandler constructs ViewHandler.
func NewViewHandler(views viewService) *ViewHandler {
	return &ViewHandler{views: views}
}

// List godoc
// @Summary List saved views
// @Tags Views
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Success 200 {object} response.Envelope
// @Router /{resource}/views [get]
func (h *ViewHandler) List(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := h.views.List(c.Request.Context(), table)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, "views retrieved", views)
	}
}

// Create godoc
// @Summary Save a view
// @Tags Views
// @Accept json
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Param payload body models.CreateViewRequest true "View payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /{resource}/views [post]
func (h *ViewHandler) Create(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
			return
		}
		var userID string
		if claims := middleware.Claims(c); claims != nil {
			userID = claims.UserID
		}
		view, err := h.views.Create(c.Request.Context(), table, req, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, "view created", view)
	}
}

// Update godoc
// @Summary Rename or overwrite a view
// @Tags Views
// @Accept json
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Param id path string true "View ID"
// @Param payload body models.UpdateViewRequest true "View payload"
// @Success 200 {object} response.Envelope
// @Router /{resource}/views/{id} [patch]
func (h *ViewHandler) Update(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UpdateViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
			return
		}
		view, err := h.views.Update(c.Request.Context(), table, c.Param("id"), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, "view updated", view)
	}
}

// Delete godoc
// @Summary Delete a view
// @Tags Views
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Param id path string true "View ID"
// @Success 200 {object} response.Envelope
// @Router /{resource}/views/{id} [delete]
func (h *ViewHandler) Delete(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.views.Delete(c.Request.Context(), table, id); err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, "view deleted", gin.H{"id": id})
	}
}
