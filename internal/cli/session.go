package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/client"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/filters"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/toolbar"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/views"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/browse"
)

// resource describes a table the console can open.
type resource[R any] struct {
	name    string
	title   string
	columns func() []table.Column[R]
	hidden  []string
	rowID   func(R) string
}

// session is one opened table: the controller plus its action bar.
type session[R any] struct {
	res     resource[R]
	client  *client.Client
	ctrl    *datatable.Controller[R]
	actions *toolbar.ActionBar[R]
	total   int
}

func openSession[R any](ctx context.Context, a *app, res resource[R], notifier notify.Notifier, log *zap.Logger) (*session[R], error) {
	c := a.newClient(notifier, log)
	registry := filters.NewRegistry(filters.WithDebounce(a.cfg.Table.Debounce), filters.WithLogger(log))
	tbl, err := table.New(table.Options[R]{
		Columns:  res.columns(),
		GetRowID: res.rowID,
		Registry: registry,
		InitialState: table.InitialState{
			Hidden:   res.hidden,
			PageSize: a.codec.Defaults().PerPage,
		},
	})
	if err != nil {
		return nil, err
	}

	mgr := views.NewManager(res.name, c, a.codec.Defaults(), views.WithLogger(log), views.WithNotifier(notifier))
	if err := mgr.Load(ctx); err != nil {
		log.Warn("saved views unavailable", zap.String("table", res.name), zap.Error(err))
	}

	ctrl, err := datatable.NewController(ctx, datatable.Config[R]{
		Table:    tbl,
		State:    searchparams.NewState(a.codec, tbl.Defs(), log, notifier),
		Views:    mgr,
		Fetcher:  client.NewFetcher[R](c, a.codec, res.name),
		Logger:   log,
		Notifier: notifier,
	})
	if err != nil {
		return nil, err
	}
	s := &session[R]{res: res, client: c, ctrl: ctrl}
	s.actions = toolbar.NewActionBar(tbl, toolbar.DeleterFunc(s.deactivate), log, notifier)
	ctrl.OnResult(func(r datatable.Result[R]) {
		if r.Err == nil {
			s.total = r.Page.Total
		}
	})
	return s, nil
}

func (s *session[R]) deactivate(ctx context.Context, ids []string) error {
	_, err := s.client.BulkDeactivate(ctx, s.res.name, ids)
	return err
}

// load applies the query options and, when requested, a saved view. It does
// not wait for the resulting fetch.
func (s *session[R]) load(opts queryOptions) error {
	values, err := opts.values()
	if err != nil {
		return err
	}
	if err := s.ctrl.ApplyURL(values); err != nil {
		return err
	}
	if opts.view != "" {
		view, err := findView(s.ctrl.Views(), opts.view)
		if err != nil {
			return err
		}
		if err := s.ctrl.SelectView(view.ID); err != nil {
			return err
		}
	}
	if err := s.applyFilters(opts); err != nil {
		return err
	}
	return s.applySort(opts)
}

// applyFilters layers --filter and --match on top of the loaded state
// through the advanced filter builder.
func (s *session[R]) applyFilters(opts queryOptions) error {
	if len(opts.filters) == 0 && opts.match == "" {
		return nil
	}
	tbl := s.ctrl.Table()
	tb := toolbar.New(tbl, s.ctrl.SetJoinOperator)
	tb.SyncJoinOperator(s.ctrl.JoinOperator())
	tb.SetMode(toolbar.ModeAdvanced)
	if opts.match != "" {
		join, err := joinFor(opts.match)
		if err != nil {
			return err
		}
		if err := tb.SetJoinOperator(join); err != nil {
			return err
		}
	}
	for _, raw := range opts.filters {
		f, err := parseFilterFlag(raw)
		if err != nil {
			return err
		}
		col, ok := columns.Find(tbl.Defs(), f.column)
		if !ok {
			return fmt.Errorf("--filter: unknown column %q", f.column)
		}
		if err := tb.AddFilter(f.column); err != nil {
			return fmt.Errorf("--filter: %w", err)
		}
		value := models.FilterValue{}
		if !f.operator.Valueless() {
			if value, err = browse.ParseFilterValue(col.Variant, f.value); err != nil {
				return fmt.Errorf("--filter %s: %w", f.column, err)
			}
		}
		if err := tb.UpdateFilter(f.column, value, f.operator); err != nil {
			return fmt.Errorf("--filter: %w", err)
		}
	}
	tbl.Registry().Flush()
	return nil
}

// applySort replaces the sort with --sort keys. The page from --page or
// --query is kept.
func (s *session[R]) applySort(opts queryOptions) error {
	if len(opts.sort) == 0 {
		return nil
	}
	tbl := s.ctrl.Table()
	page := tbl.PageIndex()
	list := toolbar.NewSortList(tbl)
	if err := list.Reset(); err != nil {
		return err
	}
	for _, key := range opts.sort {
		key = strings.TrimSpace(key)
		desc := strings.HasPrefix(key, "-")
		id := strings.TrimPrefix(key, "-")
		if id == "" {
			continue
		}
		if err := list.Add(id); err != nil {
			return fmt.Errorf("--sort: %w", err)
		}
		if desc {
			if err := list.Update(len(list.Items())-1, models.SortItem{ID: id, Desc: true}); err != nil {
				return fmt.Errorf("--sort: %w", err)
			}
		}
	}
	tbl.SetPageIndex(page)
	return s.ctrl.Sync()
}

// wait blocks for the pending fetch and returns its error.
func (s *session[R]) wait() error {
	s.ctrl.Wait()
	return s.ctrl.Err()
}

func (s *session[R]) close() {
	s.ctrl.Close()
}

// grid renders the loaded page as headers and cells of the visible columns.
func (s *session[R]) grid() ([]string, [][]string) {
	var cols []table.Column[R]
	for _, c := range s.ctrl.Table().VisibleColumns() {
		if !c.Meta {
			cols = append(cols, c)
		}
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Label
	}
	data := s.ctrl.Table().Data()
	rows := make([][]string, len(data))
	for i, r := range data {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.Cell(r)
		}
		rows[i] = row
	}
	return headers, rows
}

// findView resolves a view by id or, case-insensitively, by name.
func findView(mgr *views.Manager, ref string) (models.View, error) {
	if mgr == nil {
		return models.View{}, views.ErrViewNotFound
	}
	if v, ok := mgr.Find(ref); ok {
		return v, nil
	}
	for _, v := range mgr.List() {
		if strings.EqualFold(v.Name, ref) {
			return v, nil
		}
	}
	return models.View{}, fmt.Errorf("%w: %s", views.ErrViewNotFound, ref)
}
