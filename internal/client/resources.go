package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// Rows is one decoded page of a table resource.
type Rows[R any] struct {
	Items      []R
	Pagination models.Pagination
	Facets     models.Facets
}

// ListRows fetches one page of a resource for the given params.
func ListRows[R any](ctx context.Context, c *Client, codec *searchparams.Codec, resource string, params models.SearchParams) Result[Rows[R]] {
	if codec == nil {
		codec = searchparams.NewCodec()
	}
	raw := send[[]R](ctx, c, http.MethodGet, resource, codec.Encode(params), nil)
	out := Result[Rows[R]]{Success: raw.Success, Message: raw.Message, Meta: raw.Meta, Links: raw.Links, Error: raw.Error}
	if !raw.Success {
		return out
	}
	out.Data.Items = raw.Data
	if p, ok := raw.Meta["pagination"]; ok {
		if err := json.Unmarshal(p, &out.Data.Pagination); err != nil {
			out.Success = false
			out.Error = c.surface(&Error{Type: ErrorValidation, Message: "pagination meta has an unexpected shape", Err: err})
			return out
		}
	}
	if f, ok := raw.Meta["facets"]; ok {
		if err := json.Unmarshal(f, &out.Data.Facets); err != nil {
			out.Success = false
			out.Error = c.surface(&Error{Type: ErrorValidation, Message: "facets meta has an unexpected shape", Err: err})
			return out
		}
	}
	return out
}

// ListQuery fetches one page of a resource for a raw query string.
func ListQuery[R any](ctx context.Context, c *Client, resource, rawQuery string) Result[Rows[R]] {
	codec := searchparams.NewCodec()
	params, err := codec.DecodeQuery(rawQuery)
	if err != nil {
		return Result[Rows[R]]{Error: &Error{Type: ErrorValidation, Message: err.Error(), Err: err}}
	}
	return ListRows[R](ctx, c, codec, resource, params)
}

// NewFetcher adapts ListRows to a table controller.
func NewFetcher[R any](c *Client, codec *searchparams.Codec, resource string) datatable.Fetcher[R] {
	return datatable.FetcherFunc[R](func(ctx context.Context, params models.SearchParams) (datatable.Page[R], error) {
		res := ListRows[R](ctx, c, codec, resource, params)
		if err := res.Err(); err != nil {
			return datatable.Page[R]{}, err
		}
		return datatable.Page[R]{
			Rows:      res.Data.Items,
			PageCount: res.Data.Pagination.PageCount,
			Total:     res.Data.Pagination.TotalCount,
			Facets:    res.Data.Facets,
		}, nil
	})
}

// ListViews returns the saved views of a table.
func (c *Client) ListViews(ctx context.Context, table string) ([]models.View, error) {
	res := send[[]models.View](ctx, c, http.MethodGet, table+"/views", nil, nil)
	return res.Data, res.Err()
}

// CreateView saves a new view.
func (c *Client) CreateView(ctx context.Context, table string, req models.CreateViewRequest) (*models.View, error) {
	res := send[models.View](ctx, c, http.MethodPost, table+"/views", nil, req)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// UpdateView renames a view and/or overwrites its snapshot.
func (c *Client) UpdateView(ctx context.Context, table, id string, req models.UpdateViewRequest) (*models.View, error) {
	res := send[models.View](ctx, c, http.MethodPatch, table+"/views/"+url.PathEscape(id), nil, req)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// DeleteView removes a view.
func (c *Client) DeleteView(ctx context.Context, table, id string) error {
	res := send[json.RawMessage](ctx, c, http.MethodDelete, table+"/views/"+url.PathEscape(id), nil, nil)
	return res.Err()
}

// BulkResult reports how many rows a bulk action touched.
type BulkResult struct {
	Affected int `json:"affected"`
}

// BulkDeactivate marks rows of a resource inactive by business id.
func (c *Client) BulkDeactivate(ctx context.Context, resource string, ids []string) (BulkResult, error) {
	res := send[BulkResult](ctx, c, http.MethodPost, resource+"/bulk-deactivate", nil, models.BulkIDsRequest{IDs: ids})
	return res.Data, res.Err()
}
