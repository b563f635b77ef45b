package browse

import (
	"fmt"
	"strings"

	btable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/views"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
)

const (
	maxColWidth = 28
	minColWidth = 4
	// header, badges, status, input and borders around the grid
	chromeLines = 7
)

func gridStyles() btable.Styles {
	s := btable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#F9FAFB")).
		Background(styles.BgHighlight).
		Bold(true)
	return s
}

// rebuild refreshes the grid's columns and rows from the table state.
func (m *Model[R]) rebuild() {
	m.clampColumn()
	cols := m.dataColumns()
	data := m.tbl.Data()
	sorting := m.tbl.Sorting()

	headers := make([]btable.Column, 0, len(cols)+1)
	headers = append(headers, btable.Column{Title: " ", Width: 1})
	widths := make([]int, len(cols))
	titles := make([]string, len(cols))
	for i, c := range cols {
		title := c.Label
		if title == "" {
			title = c.ID
		}
		for _, s := range sorting {
			if s.ID == c.ID {
				if s.Desc {
					title += " " + styles.SymbolSortDesc
				} else {
					title += " " + styles.SymbolSortAsc
				}
			}
		}
		if _, ok := m.tbl.Registry().Get(c.ID); ok {
			title += "*"
		}
		if i == m.col {
			title = "[" + title + "]"
		}
		titles[i] = title
		widths[i] = runewidth.StringWidth(title)
	}

	rows := make([]btable.Row, 0, len(data))
	for _, r := range data {
		row := make(btable.Row, 0, len(cols)+1)
		mark := " "
		if m.tbl.IsSelected(m.tbl.RowID(r)) {
			mark = styles.SymbolSelected
		}
		row = append(row, mark)
		for i, c := range cols {
			cell := c.Cell(r)
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	for i, title := range titles {
		headers = append(headers, btable.Column{Title: title, Width: clamp(widths[i], minColWidth, maxColWidth)})
	}

	cursor := m.grid.Cursor()
	m.grid.SetRows(nil)
	m.grid.SetColumns(headers)
	m.grid.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.grid.SetCursor(cursor)
}

func (m *Model[R]) resize() {
	helpLines := 1
	if m.help.ShowAll {
		helpLines = len(keys.FullHelp()[0])
	}
	h := m.height - chromeLines - helpLines
	if h < 3 {
		h = 3
	}
	m.grid.SetHeight(h)
	if m.width > 0 {
		m.grid.SetWidth(m.width)
	}
}

// View implements tea.Model.
func (m *Model[R]) View() string {
	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")
	b.WriteString(m.badgeLine())
	b.WriteString("\n")

	if m.mode == modeColumns {
		b.WriteString(m.columnsView())
	} else {
		b.WriteString(m.grid.View())
	}
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	switch m.mode {
	case modeFilter, modeSaveView:
		b.WriteString(m.input.View())
	case modeConfirm:
		b.WriteString(styles.WarningMsg(fmt.Sprintf("Deactivate %d selected row(s)? [y/N]", m.tbl.SelectedCount())))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model[R]) headerLine() string {
	parts := []string{styles.Title(m.title)}
	pages := m.tbl.PageCount()
	page := m.tbl.PageIndex() + 1
	if pages == 0 {
		page = 0
	}
	parts = append(parts, styles.MutedMsg(fmt.Sprintf("page %d/%d · %d rows · %d per page", page, pages, m.total, m.tbl.PageSize())))
	if mgr := m.ctrl.Views(); mgr != nil {
		if v, ok := mgr.Current(); ok {
			label := "view: " + v.Name
			if m.ctrl.ViewStatus() == views.ViewDirty {
				label = styles.Dirty(label + " (modified)")
			} else {
				label = styles.InfoMsg(label)
			}
			parts = append(parts, label)
		} else if n := len(mgr.List()); n > 0 {
			parts = append(parts, styles.MutedMsg(fmt.Sprintf("%d saved view(s)", n)))
		}
	}
	if m.ctrl.Loading() {
		parts = append(parts, styles.MutedMsg("loading…"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model[R]) badgeLine() string {
	filters := m.tbl.Registry().List()
	if len(filters) == 0 {
		return styles.MutedMsg("no filters")
	}
	defs := m.tbl.Defs()
	badges := make([]string, 0, len(filters))
	for _, f := range filters {
		col, _ := columns.Find(defs, f.ID)
		badges = append(badges, styles.Badge(m.format.Badge(f, col)))
	}
	join := "match all"
	if m.ctrl.JoinOperator() == models.JoinOr {
		join = "match any"
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, append(badges, " "+styles.MutedMsg(join))...)
}

func (m *Model[R]) statusLine() string {
	var parts []string
	if n := m.tbl.SelectedCount(); n > 0 {
		parts = append(parts, styles.InfoMsg(fmt.Sprintf("%d selected", n)))
	}
	if m.toast != nil {
		parts = append(parts, styles.Toast(*m.toast))
	} else if err := m.ctrl.Err(); err != nil {
		parts = append(parts, styles.ErrorMsg("last fetch failed"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model[R]) columnsView() string {
	var b strings.Builder
	b.WriteString(styles.Title("Columns"))
	b.WriteString(styles.MutedMsg("  space toggles, esc closes"))
	b.WriteString("\n")
	for i, item := range m.menu.Items() {
		box := "[ ]"
		if item.Visible {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s", box, item.Label)
		if i == m.menuIndex {
			line = styles.SelectedStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
