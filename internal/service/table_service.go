package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

type rowRepository[T any] interface {
	List(ctx context.Context, params models.SearchParams) ([]T, int, error)
	Facets(ctx context.Context, params models.SearchParams) (models.Facets, error)
	Deactivate(ctx context.Context, keys []string) (int, error)
}

// TablePage is one served page of a table resource.
type TablePage[T any] struct {
	Rows       []T               `json:"rows"`
	Pagination models.Pagination `json:"pagination"`
	Facets     models.Facets     `json:"facets,omitempty"`
}

// TableService serves filtered, sorted and paged reads of one table resource.
type TableService[T any] struct {
	name      string
	repo      rowRepository[T]
	defs      []models.ColumnDef
	codec     *searchparams.Codec
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// TableServiceConfig groups the optional collaborators of a TableService.
type TableServiceConfig struct {
	Codec     *searchparams.Codec
	Validator *validator.Validate
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// NewTableService constructs the service for the resource name.
func NewTableService[T any](name string, repo rowRepository[T], defs []models.ColumnDef, cfg TableServiceConfig) *TableService[T] {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Codec == nil {
		cfg.Codec = searchparams.NewCodec(searchparams.WithValidator(cfg.Validator))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &TableService[T]{
		name:      name,
		repo:      repo,
		defs:      defs,
		codec:     cfg.Codec,
		validator: cfg.Validator,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		cacheTTL:  cfg.CacheTTL,
	}
}

// Name returns the resource name.
func (s *TableService[T]) Name() string {
	return s.name
}

// Defs returns the column metadata of the resource.
func (s *TableService[T]) Defs() []models.ColumnDef {
	return s.defs
}

// Codec returns the search params codec.
func (s *TableService[T]) Codec() *searchparams.Codec {
	return s.codec
}

// Decode parses and validates query values against the resource's columns.
func (s *TableService[T]) Decode(values url.Values) (models.SearchParams, error) {
	params, err := s.codec.Decode(values)
	if err == nil {
		err = s.codec.Validate(params, s.defs)
	}
	if err != nil {
		var verr *searchparams.ValidationError
		if errors.As(err, &verr) {
			return s.codec.Defaults(), verr.AppError()
		}
		return s.codec.Defaults(), appErrors.Wrap(err, appErrors.ErrInvalidSearchParam.Code, appErrors.ErrInvalidSearchParam.Status, appErrors.ErrInvalidSearchParam.Message)
	}
	return s.resolve(params), nil
}

// resolve fills filter variants and operators from the column metadata.
func (s *TableService[T]) resolve(params models.SearchParams) models.SearchParams {
	out := params.Clone()
	for i, f := range out.Filters {
		col, ok := columns.Find(s.defs, f.ID)
		if !ok {
			continue
		}
		if f.Variant == "" {
			out.Filters[i].Variant = col.Variant
		}
		if f.Operator == "" {
			out.Filters[i].Operator = models.DefaultOperator(out.Filters[i].Variant)
		}
	}
	return out
}

// List returns the page for params. The boolean reports a cache hit.
func (s *TableService[T]) List(ctx context.Context, params models.SearchParams) (*TablePage[T], bool, error) {
	lookup := params.Clone()
	lookup.ViewID = ""
	key := PageKey(s.name, s.codec.EncodeQuery(lookup))

	var cached TablePage[T]
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	rows, total, err := s.repo.List(ctx, params)
	s.metrics.ObserveDBQuery(s.name+"_list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list "+s.name)
	}
	start = time.Now()
	facets, err := s.repo.Facets(ctx, params)
	s.metrics.ObserveDBQuery(s.name+"_facets", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count "+s.name+" facets")
	}

	page := &TablePage[T]{
		Rows:       rows,
		Pagination: *models.NewPagination(params.Page, params.PerPage, total),
		Facets:     facets,
	}
	s.metrics.ObserveTableQuery(s.name, params, len(rows))
	_ = s.cache.Set(ctx, key, page, s.cacheTTL)
	return page, false, nil
}

// Deactivate marks the selected rows inactive and drops the cached pages.
func (s *TableService[T]) Deactivate(ctx context.Context, req models.BulkIDsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	affected, err := s.repo.Deactivate(ctx, req.IDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate "+s.name)
	}
	s.logger.Info("rows deactivated", zap.String("table", s.name), zap.Int("requested", len(req.IDs)), zap.Int("affected", affected))
	_ = s.cache.Invalidate(ctx, PagePattern(s.name))
	return affected, nil
}
