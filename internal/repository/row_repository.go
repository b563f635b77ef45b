package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// RowRepository serves paged, filtered reads of one table resource.
type RowRepository[T any] struct {
	db     *sqlx.DB
	schema TableSchema
}

// NewRowRepository constructs a RowRepository over schema.
func NewRowRepository[T any](db *sqlx.DB, schema TableSchema) *RowRepository[T] {
	return &RowRepository[T]{db: db, schema: schema}
}

// Schema exposes the table mapping.
func (r *RowRepository[T]) Schema() TableSchema {
	return r.schema
}

// List returns the requested page and the total row count matching the filters.
func (r *RowRepository[T]) List(ctx context.Context, params models.SearchParams) ([]T, int, error) {
	args := &queryArgs{}
	where, err := r.schema.where(args, params.Filters, params.JoinOperator, "")
	if err != nil {
		return nil, 0, err
	}
	order, err := r.schema.orderBy(params.Sort)
	if err != nil {
		return nil, 0, err
	}
	size := params.PerPage
	if size <= 0 {
		size = models.DefaultPerPage
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT %d OFFSET %d", r.schema.Select, r.schema.From, where, order, size, params.Offset())
	rows := make([]T, 0, size)
	if err := r.db.SelectContext(ctx, &rows, query, args.values...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.schema.Table, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.schema.From, where), args.values...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.schema.Table, err)
	}
	return rows, total, nil
}

// Facets counts distinct values of every facet column under the other filters.
func (r *RowRepository[T]) Facets(ctx context.Context, params models.SearchParams) (models.Facets, error) {
	facets := models.Facets{}
	for _, id := range r.schema.FacetColumns() {
		col := r.schema.Columns[id]
		args := &queryArgs{}
		where, err := r.schema.where(args, params.Filters, params.JoinOperator, id)
		if err != nil {
			return nil, err
		}
		notNull := " WHERE "
		if where != "" {
			notNull = " AND "
		}
		query := fmt.Sprintf("SELECT CAST(%s AS TEXT) AS value, COUNT(*) AS count FROM %s%s%s%s IS NOT NULL GROUP BY 1 ORDER BY 1",
			col.Expr, r.schema.From, where, notNull, col.Expr)
		var buckets []models.FacetBucket
		if err := r.db.SelectContext(ctx, &buckets, query, args.values...); err != nil {
			return nil, fmt.Errorf("facet %s.%s: %w", r.schema.Table, id, err)
		}
		facets[id] = buckets
	}
	return facets, nil
}

// Deactivate marks the rows with the given business keys inactive.
func (r *RowRepository[T]) Deactivate(ctx context.Context, keys []string) (int, error) {
	query := fmt.Sprintf("UPDATE %s SET active = false, updated_at = $1 WHERE %s = ANY($2) AND active", r.schema.Table, r.schema.Key)
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), pq.Array(keys))
	if err != nil {
		return 0, fmt.Errorf("deactivate %s: %w", r.schema.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate %s: %w", r.schema.Table, err)
	}
	return int(affected), nil
}
