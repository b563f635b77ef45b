// Package datatable wires the filter registry, table, search params and saved
// views of one table to its data source.
package datatable

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/views"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

// Page is one page of rows returned by a Fetcher.
type Page[R any] struct {
	Rows      []R
	PageCount int
	Total     int
	Facets    models.Facets
}

// Fetcher loads rows for validated params.
type Fetcher[R any] interface {
	Fetch(ctx context.Context, params models.SearchParams) (Page[R], error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[R any] func(ctx context.Context, params models.SearchParams) (Page[R], error)

// Fetch implements Fetcher.
func (f FetcherFunc[R]) Fetch(ctx context.Context, params models.SearchParams) (Page[R], error) {
	return f(ctx, params)
}

// URLWriter receives the minimal query values whenever validated params change.
type URLWriter interface {
	WriteURL(values url.Values)
}

// URLWriterFunc adapts a function to URLWriter.
type URLWriterFunc func(values url.Values)

// WriteURL implements URLWriter.
func (f URLWriterFunc) WriteURL(values url.Values) { f(values) }

// Result is delivered to listeners after each non-stale fetch.
type Result[R any] struct {
	Params models.SearchParams
	Page   Page[R]
	Err    error
}

// Config collects a controller's collaborators. Views and URL are optional.
type Config[R any] struct {
	Table    *table.Table[R]
	State    *searchparams.State
	Views    *views.Manager
	Fetcher  Fetcher[R]
	URL      URLWriter
	Logger   *zap.Logger
	Notifier notify.Notifier
}

// Controller recomputes search params after every mutation, writes them to
// the URL when they change and fetches the matching rows. A newer fetch
// cancels the one in flight and late responses are discarded.
type Controller[R any] struct {
	mu        sync.Mutex
	syncMu    sync.Mutex
	deliverMu sync.Mutex
	ctx       context.Context
	stop      context.CancelFunc
	table     *table.Table[R]
	state     *searchparams.State
	views     *views.Manager
	fetcher   Fetcher[R]
	url       URLWriter
	logger    *zap.Logger
	notifier  notify.Notifier
	baseDefs  []models.ColumnDef
	join      models.JoinOperator
	gen       uint64
	cancel    context.CancelFunc
	inflight  sync.WaitGroup
	loading   bool
	lastErr   error
	applying  bool
	listeners []func(Result[R])
}

// NewController builds a controller. Fetches run under ctx until Close.
func NewController[R any](ctx context.Context, cfg Config[R]) (*Controller[R], error) {
	if cfg.Table == nil || cfg.Fetcher == nil {
		return nil, errors.New("datatable: table and fetcher are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.State == nil {
		cfg.State = searchparams.NewState(nil, cfg.Table.Defs(), cfg.Logger, cfg.Notifier)
	}
	if cfg.URL == nil {
		cfg.URL = URLWriterFunc(func(url.Values) {})
	}
	ctx, stop := context.WithCancel(ctx)
	c := &Controller[R]{
		ctx:      ctx,
		stop:     stop,
		table:    cfg.Table,
		state:    cfg.State,
		views:    cfg.Views,
		fetcher:  cfg.Fetcher,
		url:      cfg.URL,
		logger:   cfg.Logger,
		notifier: notify.Or(cfg.Notifier),
		baseDefs: cfg.Table.Defs(),
		join:     cfg.State.Current().JoinOperator,
	}
	cfg.Table.Registry().OnChange(c.filtersChanged)
	return c, nil
}

// Table returns the managed table.
func (c *Controller[R]) Table() *table.Table[R] { return c.table }

// Views returns the view manager, or nil.
func (c *Controller[R]) Views() *views.Manager { return c.views }

// Params returns the last validated params.
func (c *Controller[R]) Params() models.SearchParams { return c.state.Current() }

// Query returns the minimal query string of the current params.
func (c *Controller[R]) Query() string { return c.state.Codec().EncodeQuery(c.state.Current()) }

// OnResult registers a listener for fetch results.
func (c *Controller[R]) OnResult(fn func(Result[R])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Loading reports whether a fetch is in flight.
func (c *Controller[R]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last completed fetch.
func (c *Controller[R]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Wait blocks until every started fetch has finished.
func (c *Controller[R]) Wait() {
	c.inflight.Wait()
}

// Close cancels in-flight fetches and stops debounced filter writes.
func (c *Controller[R]) Close() {
	c.stop()
	c.table.Registry().Close()
	c.inflight.Wait()
}

// compose derives params from the live table and registry.
func (c *Controller[R]) compose() models.SearchParams {
	c.mu.Lock()
	join := c.join
	c.mu.Unlock()
	p := models.SearchParams{
		Page:         c.table.PageIndex() + 1,
		PerPage:      c.table.PageSize(),
		Sort:         c.table.Sorting(),
		Filters:      c.table.Registry().List(),
		JoinOperator: join,
	}
	if c.views != nil {
		if v, ok := c.views.Current(); ok {
			p.ViewID = v.ID
		}
	}
	return p
}

// Sync validates the live state and, when it changed, writes the URL and
// fetches. Widgets call it after mutating the table.
func (c *Controller[R]) Sync() error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	params, changed, err := c.state.Set(c.compose())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	c.url.WriteURL(c.state.Values())
	c.fetch(params)
	return nil
}

// Refresh refetches the current params unconditionally.
func (c *Controller[R]) Refresh() {
	c.fetch(c.state.Current())
}

func (c *Controller[R]) filtersChanged(list []models.ActiveFilter) {
	c.mu.Lock()
	applying := c.applying
	c.mu.Unlock()
	if applying {
		return
	}
	if !models.SameFilters(list, c.state.Current().Filters) {
		c.table.SetPageIndex(0)
	}
	if err := c.Sync(); err != nil {
		c.logger.Warn("filter change rejected", zap.Error(err))
	}
}

// SetPage moves to a zero-based page and syncs.
func (c *Controller[R]) SetPage(index int) error {
	c.table.SetPageIndex(index)
	return c.Sync()
}

// NextPage advances one page when possible.
func (c *Controller[R]) NextPage() error {
	return c.SetPage(c.table.PageIndex() + 1)
}

// PrevPage goes back one page when possible.
func (c *Controller[R]) PrevPage() error {
	return c.SetPage(c.table.PageIndex() - 1)
}

// SetPageSize changes the page size and syncs.
func (c *Controller[R]) SetPageSize(size int) error {
	c.table.SetPageSize(size)
	return c.Sync()
}

// ToggleSort cycles a column's sort and syncs.
func (c *Controller[R]) ToggleSort(id string) error {
	if err := c.table.ToggleSort(id); err != nil {
		return err
	}
	return c.Sync()
}

// SetJoinOperator changes how filters combine and syncs.
func (c *Controller[R]) SetJoinOperator(j models.JoinOperator) {
	c.mu.Lock()
	c.join = j
	c.mu.Unlock()
	if err := c.Sync(); err != nil {
		c.logger.Warn("join operator rejected", zap.Error(err))
	}
}

// JoinOperator returns how filters combine.
func (c *Controller[R]) JoinOperator() models.JoinOperator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.join
}

// ApplyURL loads params from the URL. Malformed values keep the previous
// state; the state has already warned the user when an error is returned.
func (c *Controller[R]) ApplyURL(values url.Values) error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	params, changed, err := c.state.Apply(values)
	if err != nil {
		return err
	}
	c.load(params)
	if c.views != nil {
		if params.ViewID == "" {
			c.views.Deselect()
		} else if _, err := c.views.Select(params.ViewID); err != nil {
			c.logger.Warn("view in url not found", zap.String("view_id", params.ViewID))
		}
	}
	if changed || c.table.PageCount() == 0 {
		c.fetch(params)
	}
	return nil
}

// load pushes params into the table and registry without echoing a sync.
func (c *Controller[R]) load(params models.SearchParams) {
	c.mu.Lock()
	c.applying = true
	c.join = params.JoinOperator
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.applying = false
		c.mu.Unlock()
	}()

	c.table.SetPageSize(params.PerPage)
	if err := c.table.SetSorting(params.Sort); err != nil {
		c.logger.Warn("ignoring sort", zap.Error(err))
	}
	c.table.Registry().Replace(params.Filters)
	c.table.RestorePageIndex(params.Page - 1)
}

// SelectView loads a saved view into the table and syncs.
func (c *Controller[R]) SelectView(id string) error {
	if c.views == nil {
		return errors.New("datatable: views are not enabled")
	}
	view, err := c.views.Select(id)
	if err != nil {
		return err
	}
	params := c.state.Current().WithViewParams(view.SearchParams)
	params.ViewID = view.ID
	c.load(params)
	if len(view.Columns) > 0 {
		c.table.ShowOnly(view.Columns)
	}
	return c.Sync()
}

// DeselectView returns to an ad-hoc query, keeping the live filters.
func (c *Controller[R]) DeselectView() error {
	if c.views == nil {
		return nil
	}
	c.views.Deselect()
	return c.Sync()
}

// ViewStatus compares the live table against the selected view.
func (c *Controller[R]) ViewStatus() views.Status {
	if c.views == nil {
		return views.NoViewSelected
	}
	return c.views.State(c.state.Current(), c.table.VisibleColumnIDs())
}

// CanSaveView reports whether the live state can be saved as a new view.
func (c *Controller[R]) CanSaveView() bool {
	return c.views != nil && c.views.CanSaveNew(c.state.Current())
}

// SaveView saves the live state as a new view and selects it.
func (c *Controller[R]) SaveView(ctx context.Context, name string) (models.View, error) {
	if c.views == nil {
		return models.View{}, errors.New("datatable: views are not enabled")
	}
	c.table.Registry().Flush()
	view, err := c.views.Create(ctx, name, c.state.Current(), c.table.VisibleColumnIDs())
	if err != nil {
		return models.View{}, err
	}
	return view, c.Sync()
}

// UpdateView overwrites the selected view with the live state.
func (c *Controller[R]) UpdateView(ctx context.Context) (models.View, error) {
	if c.views == nil {
		return models.View{}, errors.New("datatable: views are not enabled")
	}
	c.table.Registry().Flush()
	return c.views.Update(ctx, c.state.Current(), c.table.VisibleColumnIDs())
}

// DiffView describes how the live state differs from the selected view.
func (c *Controller[R]) DiffView() (string, error) {
	if c.views == nil {
		return "", views.ErrNoViewSelected
	}
	return c.views.Diff(c.state.Current(), c.table.VisibleColumnIDs())
}

func (c *Controller[R]) fetch(params models.SearchParams) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.loading = true
	c.inflight.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.inflight.Done()
		defer cancel()
		page, err := c.fetcher.Fetch(ctx, params)
		c.deliver(gen, params, page, err)
	}()
}

// deliver applies a response. Deliveries are serialised so a response that
// passed the generation check cannot overwrite a newer one.
func (c *Controller[R]) deliver(gen uint64, params models.SearchParams, page Page[R], err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale response", zap.Uint64("generation", gen))
		return
	}
	c.loading = false
	c.cancel = nil
	c.lastErr = err
	listeners := append([]func(Result[R]){}, c.listeners...)
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Warn("fetch failed", zap.String("query", c.state.Codec().EncodeQuery(params)), zap.Error(err))
		if !notify.Surfaced(err) {
			c.notifier.Notify(notify.LevelError, "Could not load the table. Please try again later.")
		}
	} else {
		c.table.SetData(page.Rows, page.PageCount)
		if len(page.Facets) > 0 {
			c.table.SetDefs(columns.ApplyFacets(c.baseDefs, page.Facets))
		}
	}
	for _, fn := range listeners {
		fn(Result[R]{Params: params, Page: page, Err: err})
	}
}
