package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

type viewRepository interface {
	List(ctx context.Context, table string) ([]models.View, error)
	FindByID(ctx context.Context, table, id string) (*models.View, error)
	ExistsByName(ctx context.Context, table, name, excludeID string) (bool, error)
	Create(ctx context.Context, view *models.View) error
	Update(ctx context.Context, view *models.View) error
	Delete(ctx context.Context, table, id string) error
}

// ViewService manages saved views of the table resources.
type ViewService struct {
	repo      viewRepository
	defs      func(table string) []models.ColumnDef
	codec     *searchparams.Codec
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewViewService constructs a ViewService. defs returns the columns of a
// table, or nil for unknown tables.
func NewViewService(repo viewRepository, defs func(table string) []models.ColumnDef, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *ViewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		repo:      repo,
		defs:      defs,
		codec:     searchparams.NewCodec(searchparams.WithValidator(validate)),
		validator: validate,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

func (s *ViewService) columnsOf(table string) ([]models.ColumnDef, error) {
	defs := s.defs(table)
	if defs == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "table not found")
	}
	return defs, nil
}

// List returns the views of a table.
func (s *ViewService) List(ctx context.Context, table string) ([]models.View, error) {
	if _, err := s.columnsOf(table); err != nil {
		return nil, err
	}
	var cached []models.View
	if hit, err := s.cache.Get(ctx, ViewsKey(table), &cached); err == nil && hit {
		return cached, nil
	}
	views, err := s.repo.List(ctx, table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list views")
	}
	if views == nil {
		views = []models.View{}
	}
	_ = s.cache.Set(ctx, ViewsKey(table), views, s.cacheTTL)
	return views, nil
}

// Create saves a new view owned by userID.
func (s *ViewService) Create(ctx context.Context, table string, req models.CreateViewRequest, userID string) (*models.View, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.TableName == "" {
		req.TableName = table
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view payload")
	}
	if req.TableName != table {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tableName does not match the route")
	}
	defs, err := s.columnsOf(table)
	if err != nil {
		return nil, err
	}
	if err := s.checkSnapshot(defs, req.Columns, req.SearchParams); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, table, req.Name, ""); err != nil {
		return nil, err
	}

	view := &models.View{
		Name:         req.Name,
		TableName:    table,
		Columns:      req.Columns,
		SearchParams: req.SearchParams,
	}
	if userID != "" {
		view.CreatedBy = &userID
	}
	if err := s.repo.Create(ctx, view); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create view")
	}
	s.mutated(ctx, table, "create", view.ID)
	return view, nil
}

// Update renames a view and/or replaces its snapshot.
func (s *ViewService) Update(ctx context.Context, table, id string, req models.UpdateViewRequest) (*models.View, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view payload")
	}
	defs, err := s.columnsOf(table)
	if err != nil {
		return nil, err
	}
	view, err := s.find(ctx, table, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != view.Name {
		if err := s.ensureUniqueName(ctx, table, *req.Name, id); err != nil {
			return nil, err
		}
		view.Name = *req.Name
	}
	if req.Columns != nil {
		view.Columns = req.Columns
	}
	if req.SearchParams != nil {
		view.SearchParams = *req.SearchParams
	}
	if err := s.checkSnapshot(defs, view.Columns, view.SearchParams); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, view); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "view not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update view")
	}
	s.mutated(ctx, table, "update", id)
	return view, nil
}

// Delete removes a view.
func (s *ViewService) Delete(ctx context.Context, table, id string) error {
	if _, err := s.columnsOf(table); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, table, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "view not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete view")
	}
	s.mutated(ctx, table, "delete", id)
	return nil
}

func (s *ViewService) find(ctx context.Context, table, id string) (*models.View, error) {
	view, err := s.repo.FindByID(ctx, table, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "view not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load view")
	}
	return view, nil
}

func (s *ViewService) ensureUniqueName(ctx context.Context, table, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, table, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate view name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a view with this name already exists")
	}
	return nil
}

// checkSnapshot rejects unknown columns and filters the table cannot apply.
func (s *ViewService) checkSnapshot(defs []models.ColumnDef, cols []string, snapshot models.ViewParams) error {
	for _, id := range cols {
		if _, ok := columns.Find(defs, id); !ok {
			return appErrors.Clone(appErrors.ErrValidation, "unknown column "+id)
		}
	}
	params := s.codec.Defaults().WithViewParams(snapshot)
	if err := s.codec.Validate(params, defs); err != nil {
		var verr *searchparams.ValidationError
		if errors.As(err, &verr) {
			return verr.AppError()
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view search params")
	}
	return nil
}

func (s *ViewService) mutated(ctx context.Context, table, action, id string) {
	_ = s.cache.Invalidate(ctx, ViewsKey(table))
	s.metrics.RecordViewMutation(table, action)
	s.logger.Info("view "+action+"d", zap.String("table", table), zap.String("view_id", id))
}
