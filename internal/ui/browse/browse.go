// Package browse is the interactive table browser: a bubbletea program
// driving a datatable.Controller.
package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	btable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/toolbar"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/views"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/internal/ui"
	"github.com/noah-isme/sma-adp-datatable/pkg/storage"
)

const toastTTL = 4 * time.Second

type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeSaveView
	modeColumns
	modeConfirm
)

// Config wires a browser to one table.
type Config[R any] struct {
	Title      string
	Controller *datatable.Controller[R]
	Actions    *toolbar.ActionBar[R]
	Toasts     *ui.ChanNotifier
	Formatter  toolbar.Formatter
	Exports    *storage.LocalStorage
	Logger     *zap.Logger
}

type resultMsg[R any] struct {
	res datatable.Result[R]
}

type toastMsg notify.Message

type clearToastMsg struct {
	at time.Time
}

type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea model of the browser.
type Model[R any] struct {
	ctx     context.Context
	title   string
	ctrl    *datatable.Controller[R]
	tbl     *table.Table[R]
	actions *toolbar.ActionBar[R]
	menu    *toolbar.ColumnMenu[R]
	filters *toolbar.Toolbar[R]
	toasts  *ui.ChanNotifier
	format  toolbar.Formatter
	exports *storage.LocalStorage
	logger  *zap.Logger

	results chan datatable.Result[R]

	grid      btable.Model
	input     textinput.Model
	help      help.Model
	mode      mode
	col       int
	menuIndex int
	toast     *notify.Message
	toastAt   time.Time
	total     int
	width     int
	height    int
}

// New builds the model and subscribes it to the controller's results.
func New[R any](ctx context.Context, cfg Config[R]) *Model[R] {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Toasts == nil {
		cfg.Toasts = ui.NewChanNotifier(0)
	}
	if cfg.Exports == nil {
		cfg.Exports = &storage.LocalStorage{}
	}
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	grid := btable.New(btable.WithFocused(true), btable.WithHeight(15))
	grid.SetStyles(gridStyles())

	m := &Model[R]{
		ctx:     ctx,
		title:   cfg.Title,
		ctrl:    cfg.Controller,
		tbl:     cfg.Controller.Table(),
		actions: cfg.Actions,
		menu:    toolbar.NewColumnMenu(cfg.Controller.Table()),
		filters: toolbar.New(cfg.Controller.Table(), cfg.Controller.SetJoinOperator),
		toasts:  cfg.Toasts,
		format:  cfg.Formatter,
		exports: cfg.Exports,
		logger:  cfg.Logger,
		results: make(chan datatable.Result[R], 4),
		grid:    grid,
		input:   ti,
		help:    help.New(),
	}
	cfg.Controller.OnResult(func(res datatable.Result[R]) {
		select {
		case m.results <- res:
		default:
			m.logger.Debug("dropping table result, browser is behind")
		}
	})
	m.filters.SyncJoinOperator(cfg.Controller.JoinOperator())
	m.rebuild()
	return m
}

// Run starts the browser in the alternate screen and blocks until quit.
func Run[R any](ctx context.Context, cfg Config[R]) error {
	m := New(ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model[R]) waitResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-m.results:
			return resultMsg[R]{res: res}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model[R]) waitToast() tea.Cmd {
	return func() tea.Msg {
		select {
		case t := <-m.toasts.C():
			return toastMsg(t)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model.
func (m *Model[R]) Init() tea.Cmd {
	return tea.Batch(m.waitResult(), m.waitToast())
}

// Update implements tea.Model.
func (m *Model[R]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case resultMsg[R]:
		if msg.res.Err == nil {
			m.total = msg.res.Page.Total
		}
		m.filters.SyncJoinOperator(m.ctrl.JoinOperator())
		m.rebuild()
		return m, m.waitResult()

	case toastMsg:
		t := notify.Message(msg)
		m.toast = &t
		m.toastAt = time.Now()
		at := m.toastAt
		return m, tea.Batch(m.waitToast(), tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{at: at} }))

	case clearToastMsg:
		if msg.at.Equal(m.toastAt) {
			m.toast = nil
		}
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.logger.Debug("browser action failed", zap.String("op", msg.op), zap.Error(msg.err))
			m.report(msg.err)
		}
		m.rebuild()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeFilter, modeSaveView:
			return m.updateInput(msg)
		case modeColumns:
			return m.updateColumns(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model[R]) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, keys.Up):
		m.grid.MoveUp(1)
	case key.Matches(msg, keys.Down):
		m.grid.MoveDown(1)
	case key.Matches(msg, keys.Left):
		if m.col > 0 {
			m.col--
			m.rebuild()
		}
	case key.Matches(msg, keys.Right):
		if m.col < len(m.dataColumns())-1 {
			m.col++
			m.rebuild()
		}
	case key.Matches(msg, keys.NextPage):
		if m.tbl.PageIndex()+1 < m.tbl.PageCount() {
			m.report(m.ctrl.NextPage())
		}
	case key.Matches(msg, keys.PrevPage):
		if m.tbl.PageIndex() > 0 {
			m.report(m.ctrl.PrevPage())
		}
	case key.Matches(msg, keys.Sort):
		if col, ok := m.focused(); ok {
			if !columns.CanSort(col.ColumnDef) {
				m.flash(notify.LevelWarning, col.Label+" cannot be sorted.")
				break
			}
			m.report(m.ctrl.ToggleSort(col.ID))
		}
	case key.Matches(msg, keys.Filter):
		return m.startFilter()
	case key.Matches(msg, keys.Facet):
		m.cycleFacet()
	case key.Matches(msg, keys.ClearFilter):
		if col, ok := m.focused(); ok {
			if m.tbl.Registry().Remove(col.ID) {
				m.flash(notify.LevelInfo, "Filter on "+col.Label+" cleared.")
			}
		}
	case key.Matches(msg, keys.ClearAll):
		m.tbl.Registry().Clear()
	case key.Matches(msg, keys.Join):
		next := models.JoinOr
		if m.filters.JoinOperator() == models.JoinOr {
			next = models.JoinAnd
		}
		if err := m.filters.SetJoinOperator(next); err != nil {
			m.flash(notify.LevelError, err.Error())
		}
	case key.Matches(msg, keys.Select):
		if id, ok := m.cursorRowID(); ok {
			m.tbl.ToggleRow(id)
			m.rebuild()
		}
	case key.Matches(msg, keys.SelectAll):
		m.tbl.ToggleAllPageRows(!m.tbl.AllPageRowsSelected())
		m.rebuild()
	case key.Matches(msg, keys.Columns):
		m.mode = modeColumns
		m.menuIndex = 0
	case key.Matches(msg, keys.Pin):
		m.pinFocused()
	case key.Matches(msg, keys.NextView):
		return m, m.cycleView()
	case key.Matches(msg, keys.ClearView):
		m.report(m.ctrl.DeselectView())
	case key.Matches(msg, keys.SaveView):
		if !m.ctrl.CanSaveView() {
			m.flash(notify.LevelWarning, "Change the filters or sort, and leave the current view, before saving a new one.")
			break
		}
		m.mode = modeSaveView
		m.input.Reset()
		m.input.Placeholder = "view name"
		m.input.Prompt = "Save view as: "
		return m, m.input.Focus()
	case key.Matches(msg, keys.UpdateView):
		return m, m.updateView()
	case key.Matches(msg, keys.ExportCSV):
		m.export("csv")
	case key.Matches(msg, keys.ExportPDF):
		m.export("pdf")
	case key.Matches(msg, keys.Yank):
		m.yank()
	case key.Matches(msg, keys.Deactivate):
		if m.actions == nil || !m.actions.Visible() {
			m.flash(notify.LevelWarning, "Select rows first.")
			break
		}
		m.mode = modeConfirm
	case key.Matches(msg, keys.Refresh):
		m.ctrl.Refresh()
	}
	return m, nil
}

func (m *Model[R]) startFilter() (tea.Model, tea.Cmd) {
	col, ok := m.focused()
	if !ok {
		return m, nil
	}
	if !columns.CanFilter(col.ColumnDef) {
		m.flash(notify.LevelWarning, col.Label+" cannot be filtered.")
		return m, nil
	}
	m.mode = modeFilter
	m.input.Reset()
	m.input.Prompt = col.Label + ": "
	m.input.Placeholder = placeholder(col.ColumnDef)
	if f, ok := m.tbl.Registry().Get(col.ID); ok {
		m.input.SetValue(inputText(f.Value))
	}
	return m, m.input.Focus()
}

func (m *Model[R]) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		current := m.mode
		m.mode = modeNormal
		m.input.Blur()
		if current == modeSaveView {
			return m, m.saveView(value)
		}
		m.applyFilter(value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model[R]) applyFilter(raw string) {
	col, ok := m.focused()
	if !ok {
		return
	}
	value, err := ParseFilterValue(col.Variant, raw)
	if err != nil {
		m.flash(notify.LevelError, err.Error())
		return
	}
	if err := m.filters.SelectColumn(col.ID); err != nil {
		m.flash(notify.LevelError, err.Error())
		return
	}
	if err := m.filters.SetValue(value); err != nil {
		m.flash(notify.LevelError, err.Error())
		return
	}
	m.tbl.Registry().Flush()
}

func (m *Model[R]) cycleFacet() {
	col, ok := m.focused()
	if !ok {
		return
	}
	if toolbar.ControlFor(col.Variant) != toolbar.ControlFaceted || len(col.Options) == 0 {
		m.flash(notify.LevelWarning, col.Label+" has no options to cycle.")
		return
	}
	var current models.FilterValue
	if f, ok := m.tbl.Registry().Get(col.ID); ok {
		current = f.Value
	}
	if err := m.tbl.SetColumnFilter(col.ID, nextOption(col.ColumnDef, current), ""); err != nil {
		m.flash(notify.LevelError, err.Error())
	}
}

func (m *Model[R]) updateColumns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.menu.Items()
	switch {
	case msg.Type == tea.KeyEsc, key.Matches(msg, keys.Columns), key.Matches(msg, keys.Quit):
		m.mode = modeNormal
	case key.Matches(msg, keys.Up):
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case key.Matches(msg, keys.Down):
		if m.menuIndex < len(items)-1 {
			m.menuIndex++
		}
	case key.Matches(msg, keys.Select), msg.Type == tea.KeyEnter:
		if m.menuIndex < len(items) {
			m.menu.Toggle(items[m.menuIndex].ID)
			if n := len(m.dataColumns()); m.col >= n {
				m.col = max(n-1, 0)
			}
			m.rebuild()
		}
	}
	return m, nil
}

func (m *Model[R]) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if msg.String() != "y" && msg.String() != "Y" {
		return m, nil
	}
	ctx, actions, ctrl := m.ctx, m.actions, m.ctrl
	return m, func() tea.Msg {
		err := actions.Delete(ctx)
		if err == nil {
			ctrl.Refresh()
		}
		return opDoneMsg{op: "deactivate", err: err}
	}
}

func (m *Model[R]) cycleView() tea.Cmd {
	mgr := m.ctrl.Views()
	if mgr == nil {
		m.flash(notify.LevelWarning, "Saved views are not available.")
		return nil
	}
	list := mgr.List()
	if len(list) == 0 {
		m.flash(notify.LevelInfo, "No saved views yet.")
		return nil
	}
	next := 0
	if current, ok := mgr.Current(); ok {
		for i, v := range list {
			if v.ID == current.ID {
				next = i + 1
				break
			}
		}
	}
	if next >= len(list) {
		m.report(m.ctrl.DeselectView())
		return nil
	}
	m.report(m.ctrl.SelectView(list[next].ID))
	m.clampColumn()
	return nil
}

func (m *Model[R]) saveView(name string) tea.Cmd {
	if strings.TrimSpace(name) == "" {
		m.flash(notify.LevelWarning, "A view needs a name.")
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.SaveView(ctx, name)
		return opDoneMsg{op: "save view", err: err}
	}
}

func (m *Model[R]) updateView() tea.Cmd {
	mgr := m.ctrl.Views()
	if mgr == nil {
		return nil
	}
	if _, ok := mgr.Current(); !ok {
		m.flash(notify.LevelWarning, "Select a view first.")
		return nil
	}
	if m.ctrl.ViewStatus() != views.ViewDirty {
		m.flash(notify.LevelInfo, "The view already matches the table.")
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.UpdateView(ctx)
		return opDoneMsg{op: "update view", err: err}
	}
}

func (m *Model[R]) export(format string) {
	if m.actions == nil || !m.actions.Visible() {
		m.flash(notify.LevelWarning, "Select rows to export.")
		return
	}
	name := fmt.Sprintf("%s-%s.%s", strings.ToLower(m.title), time.Now().Format("20060102-150405"), format)
	path, err := m.exports.Write(name, func(w io.Writer) error {
		if format == "pdf" {
			return m.actions.ExportPDF(w, m.title)
		}
		return m.actions.ExportCSV(w)
	})
	if err != nil {
		m.flash(notify.LevelError, "Export failed: "+err.Error())
		return
	}
	m.flash(notify.LevelSuccess, fmt.Sprintf("Exported %d row(s) to %s", m.tbl.SelectedCount(), path))
}

func (m *Model[R]) yank() {
	ids := m.tbl.SelectedRowIDs()
	if len(ids) == 0 {
		if id, ok := m.cursorRowID(); ok {
			ids = []string{id}
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := clipboard.WriteAll(strings.Join(ids, "\n")); err != nil {
		m.flash(notify.LevelError, "Clipboard unavailable.")
		return
	}
	m.flash(notify.LevelSuccess, fmt.Sprintf("Copied %d id(s).", len(ids)))
}

// report shows errors nobody surfaced yet.
func (m *Model[R]) report(err error) {
	if err == nil || notify.Surfaced(err) {
		return
	}
	m.flash(notify.LevelError, err.Error())
}

func (m *Model[R]) flash(level notify.Level, text string) {
	m.toasts.Notify(level, text)
}

// dataColumns returns the visible non-meta columns in display order.
func (m *Model[R]) dataColumns() []table.Column[R] {
	var out []table.Column[R]
	for _, c := range m.tbl.VisibleColumns() {
		if !c.Meta {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model[R]) focused() (table.Column[R], bool) {
	cols := m.dataColumns()
	if m.col < 0 || m.col >= len(cols) {
		return table.Column[R]{}, false
	}
	return cols[m.col], true
}

// pinFocused cycles the focused column through left, right and unpinned,
// keeping the focus on it as it moves.
func (m *Model[R]) pinFocused() {
	col, ok := m.focused()
	if !ok {
		return
	}
	side := table.PinLeft
	for _, st := range m.tbl.Columns() {
		if st.ID != col.ID {
			continue
		}
		switch st.Pinned {
		case table.PinLeft:
			side = table.PinRight
		case table.PinRight:
			side = table.PinNone
		}
	}
	m.tbl.PinColumn(col.ID, side)
	for i, c := range m.dataColumns() {
		if c.ID == col.ID {
			m.col = i
		}
	}
	m.rebuild()
}

func (m *Model[R]) clampColumn() {
	if n := len(m.dataColumns()); m.col >= n {
		m.col = max(n-1, 0)
	}
}

func (m *Model[R]) cursorRowID() (string, bool) {
	data := m.tbl.Data()
	i := m.grid.Cursor()
	if i < 0 || i >= len(data) {
		return "", false
	}
	return m.tbl.RowID(data[i]), true
}

func placeholder(col models.ColumnDef) string {
	if col.Placeholder != "" {
		return col.Placeholder
	}
	switch col.Variant {
	case models.VariantMultiSelect:
		return "a, b, c"
	case models.VariantRange:
		return "min..max"
	case models.VariantDateRange:
		return "2006-01-02..2006-12-31"
	case models.VariantDate:
		return "2006-01-02"
	default:
		return "value"
	}
}

func inputText(v models.FilterValue) string {
	switch v.Kind() {
	case models.KindList:
		return strings.Join(v.Items(), ", ")
	case models.KindRange:
		return ""
	default:
		return v.String()
	}
}
