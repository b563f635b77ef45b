package browse

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Sort        key.Binding
	Filter      key.Binding
	Facet       key.Binding
	ClearFilter key.Binding
	ClearAll    key.Binding
	Join        key.Binding
	Select      key.Binding
	SelectAll   key.Binding
	Columns     key.Binding
	Pin         key.Binding
	NextView    key.Binding
	ClearView   key.Binding
	SaveView    key.Binding
	UpdateView  key.Binding
	ExportCSV   key.Binding
	ExportPDF   key.Binding
	Yank        key.Binding
	Deactivate  key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
	NextPage:    key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
	PrevPage:    key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
	Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
	Filter:      key.NewBinding(key.WithKeys("f", "/"), key.WithHelp("f", "filter column")),
	Facet:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "cycle option")),
	ClearFilter: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filter")),
	ClearAll:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "clear all filters")),
	Join:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "match all/any")),
	Select:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select row")),
	SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
	Columns:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
	Pin:         key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pin column")),
	NextView:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "next view")),
	ClearView:   key.NewBinding(key.WithKeys("V"), key.WithHelp("V", "leave view")),
	SaveView:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save view")),
	UpdateView:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update view")),
	ExportCSV:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
	ExportPDF:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export pdf")),
	Yank:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ids")),
	Deactivate:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "deactivate")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.Sort, k.Filter, k.Select, k.NextView, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.NextPage, k.PrevPage},
		{k.Sort, k.Filter, k.Facet, k.ClearFilter, k.ClearAll, k.Join},
		{k.Select, k.SelectAll, k.Columns, k.Pin, k.Yank, k.ExportCSV, k.ExportPDF, k.Deactivate},
		{k.NextView, k.ClearView, k.SaveView, k.UpdateView, k.Refresh, k.Help, k.Quit},
	}
}
