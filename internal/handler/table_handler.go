package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/middleware"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/service"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
	"github.com/noah-isme/sma-adp-datatable/pkg/response"
)

type tableService[T any] interface {
	Name() string
	Defs() []models.ColumnDef
	Codec() *searchparams.Codec
	Decode(values url.Values) (models.SearchParams, error)
	List(ctx context.Context, params models.SearchParams) (*service.TablePage[T], bool, error)
	Deactivate(ctx context.Context, req models.BulkIDsRequest) (int, error)
}

// TableHandler exposes the read and bulk endpoints of one table resource.
type TableHandler[T any] struct {
	tables tableService[T]
}

// NewTableHandler constructs TableHandler.
func NewTableHandler[T any](tables tableService[T]) *TableHandler[T] {
	return &TableHandler[T]{tables: tables}
}

// List godoc
// @Summary List table rows
// @Description Rows are filtered, sorted and paged by the URL search params. Meta carries pagination and facet counts.
// @Tags Tables
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Param page query int false "Page, 1-based"
// @Param perPage query int false "Rows per page"
// @Param sort query string false "JSON array of {id, desc}"
// @Param filters query string false "JSON array of {id, value, operator, variant}"
// @Param joinOperator query string false "and | or"
// @Param viewId query string false "Selected saved view"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /{resource} [get]
func (h *TableHandler[T]) List(c *gin.Context) {
	params, err := h.tables.Decode(c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.tables.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "pagination", page.Pagination)
	middleware.SetMeta(c, "facets", page.Facets)
	response.JSON(c, http.StatusOK, h.tables.Name()+" retrieved", page.Rows, middleware.ExtractMeta(c), h.links(c, params, page.Pagination))
}

func (h *TableHandler[T]) links(c *gin.Context, params models.SearchParams, p models.Pagination) *response.Links {
	codec := h.tables.Codec()
	at := func(page int) string {
		q := params.Clone()
		q.Page = page
		encoded := codec.EncodeQuery(q)
		if encoded == "" {
			return c.Request.URL.Path
		}
		return c.Request.URL.Path + "?" + encoded
	}
	links := &response.Links{Self: at(params.Page)}
	if params.Page < p.PageCount {
		links.Next = at(params.Page + 1)
	}
	if params.Page > 1 {
		links.Prev = at(params.Page - 1)
	}
	return links
}

// Columns godoc
// @Summary Describe table columns
// @Tags Tables
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Success 200 {object} response.Envelope
// @Router /{resource}/columns [get]
func (h *TableHandler[T]) Columns(c *gin.Context) {
	response.OK(c, "columns retrieved", h.tables.Defs())
}

// BulkDeactivate godoc
// @Summary Deactivate selected rows
// @Tags Tables
// @Accept json
// @Produce json
// @Param resource path string true "Table resource" Enums(students, teachers)
// @Param payload body models.BulkIDsRequest true "Row ids"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /{resource}/bulk-deactivate [post]
func (h *TableHandler[T]) BulkDeactivate(c *gin.Context) {
	var req models.BulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	affected, err := h.tables.Deactivate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.tables.Name()+" deactivated", gin.H{"affected": affected})
}
