// Package views manages the saved views of one table: named snapshots of
// filters, sort and visible columns persisted by the backend.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

// Backend persists views. The REST client implements it.
type Backend interface {
	ListViews(ctx context.Context, table string) ([]models.View, error)
	CreateView(ctx context.Context, table string, req models.CreateViewRequest) (*models.View, error)
	UpdateView(ctx context.Context, table, id string, req models.UpdateViewRequest) (*models.View, error)
	DeleteView(ctx context.Context, table, id string) error
}

// Status is the state of the view selection relative to the live table.
type Status int

const (
	NoViewSelected Status = iota
	ViewClean
	ViewDirty
)

func (s Status) String() string {
	switch s {
	case ViewClean:
		return "clean"
	case ViewDirty:
		return "dirty"
	default:
		return "none"
	}
}

var (
	// ErrViewNotFound is returned when selecting or mutating an unknown view.
	ErrViewNotFound = errors.New("view not found")
	// ErrNoViewSelected is returned by Update when no view is active.
	ErrNoViewSelected = errors.New("no view selected")
	// ErrCannotSave is returned by Create when a view is active or the live
	// params are still the table defaults.
	ErrCannotSave = errors.New("current state cannot be saved as a new view")
)

// Manager tracks the view list and the current selection of one table.
type Manager struct {
	mu        sync.RWMutex
	table     string
	backend   Backend
	defaults  models.ViewParams
	views     []models.View
	currentID string
	logger    *zap.Logger
	notifier  notify.Notifier
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNotifier sets where success and failure toasts go.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		m.notifier = notify.Or(n)
	}
}

// NewManager creates a manager for the given table. defaults are the
// table's hardcoded params; a new view can only be saved once the live
// state differs from them.
func NewManager(table string, backend Backend, defaults models.SearchParams, opts ...Option) *Manager {
	m := &Manager{
		table:    table,
		backend:  backend,
		defaults: defaults.ViewParams(),
		logger:   zap.NewNop(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the table the manager belongs to.
func (m *Manager) Table() string {
	return m.table
}

// Load refetches the view list. A selection whose view disappeared is dropped.
func (m *Manager) Load(ctx context.Context) error {
	list, err := m.backend.ListViews(ctx, m.table)
	if err != nil {
		return m.fail("load views", "Could not load saved views.", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append([]models.View(nil), list...)
	if m.currentID != "" && m.indexLocked(m.currentID) < 0 {
		m.currentID = ""
	}
	return nil
}

// List returns the cached views.
func (m *Manager) List() []models.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.View(nil), m.views...)
}

// Find returns a cached view by id.
func (m *Manager) Find(id string) (models.View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.views[i], true
	}
	return models.View{}, false
}

// Select makes a view current. The caller loads its snapshot into the table.
func (m *Manager) Select(id string) (models.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return models.View{}, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	m.currentID = id
	return m.views[i], nil
}

// Deselect returns to an ad-hoc query.
func (m *Manager) Deselect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentID = ""
}

// Current returns the selected view.
func (m *Manager) Current() (models.View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentID == "" {
		return models.View{}, false
	}
	if i := m.indexLocked(m.currentID); i >= 0 {
		return m.views[i], true
	}
	return models.View{}, false
}

// State compares the live table against the selected view.
func (m *Manager) State(live models.SearchParams, liveColumns []string) Status {
	view, ok := m.Current()
	if !ok {
		return NoViewSelected
	}
	if Diverges(view, live, liveColumns) {
		return ViewDirty
	}
	return ViewClean
}

// CanUpdate reports whether the selected view can be overwritten.
func (m *Manager) CanUpdate(live models.SearchParams, liveColumns []string) bool {
	return m.State(live, liveColumns) == ViewDirty
}

// CanSaveNew reports whether the live state can be saved as a new view.
func (m *Manager) CanSaveNew(live models.SearchParams) bool {
	if _, ok := m.Current(); ok {
		return false
	}
	return !live.ViewParams().Equal(m.defaults)
}

// Diverges reports whether the live params or visible column set differ
// from the view's snapshot.
func Diverges(view models.View, live models.SearchParams, liveColumns []string) bool {
	if !view.SearchParams.Equal(live.ViewParams()) {
		return true
	}
	return !view.SameColumns(liveColumns)
}

// Create saves the live state as a new view, refetches the list and
// selects the new view.
func (m *Manager) Create(ctx context.Context, name string, live models.SearchParams, columns []string) (models.View, error) {
	if !m.CanSaveNew(live) {
		return models.View{}, ErrCannotSave
	}
	req := models.CreateViewRequest{
		Name:         strings.TrimSpace(name),
		TableName:    m.table,
		Columns:      append([]string(nil), columns...),
		SearchParams: live.ViewParams(),
	}
	created, err := m.backend.CreateView(ctx, m.table, req)
	if err != nil {
		return models.View{}, m.fail("create view", "Could not save the view.", err)
	}
	if err := m.Load(ctx); err != nil {
		m.logger.Debug("keeping stale view list after create", zap.Error(err))
	}
	m.mu.Lock()
	if m.indexLocked(created.ID) < 0 {
		m.views = append(m.views, *created)
	}
	m.currentID = created.ID
	m.mu.Unlock()

	m.logger.Info("view created", zap.String("table", m.table), zap.String("view_id", created.ID))
	m.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("View %q saved.", created.Name))
	return *created, nil
}

// Rename changes a view's name.
func (m *Manager) Rename(ctx context.Context, id, name string) (models.View, error) {
	if _, ok := m.Find(id); !ok {
		return models.View{}, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	trimmed := strings.TrimSpace(name)
	updated, err := m.backend.UpdateView(ctx, m.table, id, models.UpdateViewRequest{Name: &trimmed})
	if err != nil {
		return models.View{}, m.fail("rename view", "Could not rename the view.", err)
	}
	m.replace(*updated)
	m.notifier.Notify(notify.LevelSuccess, "View renamed.")
	return *updated, nil
}

// Update overwrites the selected view's snapshot with the live state.
func (m *Manager) Update(ctx context.Context, live models.SearchParams, columns []string) (models.View, error) {
	current, ok := m.Current()
	if !ok {
		return models.View{}, ErrNoViewSelected
	}
	params := live.ViewParams()
	req := models.UpdateViewRequest{
		Columns:      append([]string(nil), columns...),
		SearchParams: &params,
	}
	updated, err := m.backend.UpdateView(ctx, m.table, current.ID, req)
	if err != nil {
		return models.View{}, m.fail("update view", "Could not update the view.", err)
	}
	m.replace(*updated)
	m.logger.Info("view updated", zap.String("table", m.table), zap.String("view_id", updated.ID))
	m.notifier.Notify(notify.LevelSuccess, "View updated.")
	return *updated, nil
}

// Delete removes a view. Deleting the active view clears the selection.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, ok := m.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	if err := m.backend.DeleteView(ctx, m.table, id); err != nil {
		return m.fail("delete view", "Could not delete the view.", err)
	}
	m.mu.Lock()
	if i := m.indexLocked(id); i >= 0 {
		m.views = append(m.views[:i], m.views[i+1:]...)
	}
	if m.currentID == id {
		m.currentID = ""
	}
	m.mu.Unlock()
	m.notifier.Notify(notify.LevelSuccess, "View deleted.")
	return nil
}

// Diff renders the difference between the selected view and the live state
// as unified-style lines. It returns "" when they match.
func (m *Manager) Diff(live models.SearchParams, liveColumns []string) (string, error) {
	view, ok := m.Current()
	if !ok {
		return "", ErrNoViewSelected
	}
	return Diff(view, live, liveColumns)
}

// Diff renders the difference between a view and a live state.
func Diff(view models.View, live models.SearchParams, liveColumns []string) (string, error) {
	stored, err := snapshotText(view.SearchParams, view.Columns)
	if err != nil {
		return "", err
	}
	current, err := snapshotText(live.ViewParams(), liveColumns)
	if err != nil {
		return "", err
	}
	if stored == current {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToRunes(stored, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

type snapshot struct {
	Columns      []string              `json:"columns"`
	JoinOperator models.JoinOperator   `json:"joinOperator"`
	Sort         []models.SortItem     `json:"sort"`
	Filters      []models.ActiveFilter `json:"filters"`
}

func snapshotText(params models.ViewParams, columns []string) (string, error) {
	cols := append([]string(nil), columns...)
	sort.Strings(cols)
	s := snapshot{
		Columns:      cols,
		JoinOperator: params.JoinOperator,
		Sort:         params.Sort,
		Filters:      params.Filters,
	}
	if s.JoinOperator == "" {
		s.JoinOperator = models.JoinAnd
	}
	if s.Columns == nil {
		s.Columns = []string{}
	}
	if s.Sort == nil {
		s.Sort = []models.SortItem{}
	}
	if s.Filters == nil {
		s.Filters = []models.ActiveFilter{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render view snapshot: %w", err)
	}
	return string(data) + "\n", nil
}

func (m *Manager) replace(v models.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(v.ID); i >= 0 {
		m.views[i] = v
		return
	}
	m.views = append(m.views, v)
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.views {
		if m.views[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) fail(op, toast string, err error) error {
	m.logger.Warn(op+" failed", zap.String("table", m.table), zap.Error(err))
	if !notify.Surfaced(err) {
		m.notifier.Notify(notify.LevelError, toast)
	}
	return fmt.Errorf("%s: %w", op, err)
}
