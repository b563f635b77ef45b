package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// ViewRepository persists saved table views.
type ViewRepository struct {
	db *sqlx.DB
}

// NewViewRepository constructs a ViewRepository.
func NewViewRepository(db *sqlx.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

type viewRow struct {
	ID           string            `db:"id"`
	Name         string            `db:"name"`
	TableName    string            `db:"table_name"`
	Columns      pq.StringArray    `db:"columns"`
	SearchParams models.ViewParams `db:"search_params"`
	CreatedBy    *string           `db:"created_by"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

func (r viewRow) model() models.View {
	columns := []string(r.Columns)
	if columns == nil {
		columns = []string{}
	}
	return models.View{
		ID:           r.ID,
		Name:         r.Name,
		TableName:    r.TableName,
		Columns:      columns,
		SearchParams: r.SearchParams,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func rowOf(v *models.View) viewRow {
	return viewRow{
		ID:           v.ID,
		Name:         v.Name,
		TableName:    v.TableName,
		Columns:      pq.StringArray(v.Columns),
		SearchParams: v.SearchParams,
		CreatedBy:    v.CreatedBy,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

const viewColumns = "id, name, table_name, columns, search_params, created_by, created_at, updated_at"

// List returns the views of a table ordered by name.
func (r *ViewRepository) List(ctx context.Context, table string) ([]models.View, error) {
	query := "SELECT " + viewColumns + " FROM table_views WHERE table_name = $1 ORDER BY name ASC"
	var rows []viewRow
	if err := r.db.SelectContext(ctx, &rows, query, table); err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	views := make([]models.View, len(rows))
	for i, row := range rows {
		views[i] = row.model()
	}
	return views, nil
}

// FindByID fetches a view of a table. It returns sql.ErrNoRows when absent.
func (r *ViewRepository) FindByID(ctx context.Context, table, id string) (*models.View, error) {
	query := "SELECT " + viewColumns + " FROM table_views WHERE table_name = $1 AND id = $2"
	var row viewRow
	if err := r.db.GetContext(ctx, &row, query, table, id); err != nil {
		return nil, err
	}
	view := row.model()
	return &view, nil
}

// ExistsByName checks if a table already has a view with the name, optionally excluding an ID.
func (r *ViewRepository) ExistsByName(ctx context.Context, table, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM table_views WHERE table_name = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{table, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check view name: %w", err)
	}
	return true, nil
}

// Create inserts a view, assigning its ID and timestamps.
func (r *ViewRepository) Create(ctx context.Context, view *models.View) error {
	if view.ID == "" {
		view.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	view.CreatedAt = now
	view.UpdatedAt = now
	const query = `INSERT INTO table_views (id, name, table_name, columns, search_params, created_by, created_at, updated_at)
        VALUES (:id, :name, :table_name, :columns, :search_params, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rowOf(view)); err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	return nil
}

// Update overwrites the name, columns and snapshot of a view.
func (r *ViewRepository) Update(ctx context.Context, view *models.View) error {
	view.UpdatedAt = time.Now().UTC()
	const query = `UPDATE table_views SET name = :name, columns = :columns, search_params = :search_params, updated_at = :updated_at
        WHERE id = :id AND table_name = :table_name`
	res, err := r.db.NamedExecContext(ctx, query, rowOf(view))
	if err != nil {
		return fmt.Errorf("update view: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a view. It returns sql.ErrNoRows when nothing was deleted.
func (r *ViewRepository) Delete(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM table_views WHERE table_name = $1 AND id = $2", table, id)
	if err != nil {
		return fmt.Errorf("delete view: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
