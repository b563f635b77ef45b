package toolbar

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/pkg/export"
)

// Deleter removes or deactivates rows by id.
type Deleter interface {
	Delete(ctx context.Context, ids []string) error
}

// DeleterFunc adapts a function to Deleter.
type DeleterFunc func(ctx context.Context, ids []string) error

// Delete implements Deleter.
func (f DeleterFunc) Delete(ctx context.Context, ids []string) error {
	return f(ctx, ids)
}

// ActionBar offers bulk actions on the selected rows.
type ActionBar[R any] struct {
	table    *table.Table[R]
	deleter  Deleter
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	notifier notify.Notifier
}

// NewActionBar creates an action bar. deleter may be nil when rows cannot be deleted.
func NewActionBar[R any](t *table.Table[R], deleter Deleter, logger *zap.Logger, notifier notify.Notifier) *ActionBar[R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionBar[R]{
		table:    t,
		deleter:  deleter,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		notifier: notify.Or(notifier),
	}
}

// Visible reports whether any row is selected.
func (a *ActionBar[R]) Visible() bool {
	return a.table.SelectedCount() > 0
}

// Dataset collects the visible, non-meta columns of the selected rows.
func (a *ActionBar[R]) Dataset() export.Dataset {
	data := export.Dataset{Labels: make(map[string]string)}
	cols := a.table.VisibleColumns()
	for _, c := range cols {
		if c.Meta {
			continue
		}
		data.Headers = append(data.Headers, c.ID)
		data.Labels[c.ID] = c.Label
	}
	for _, row := range a.table.SelectedRows() {
		record := make(map[string]string, len(data.Headers))
		for _, c := range cols {
			if c.Meta {
				continue
			}
			record[c.ID] = c.Cell(row)
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

// ExportCSV writes the selected rows as CSV.
func (a *ActionBar[R]) ExportCSV(w io.Writer) error {
	data := a.Dataset()
	if len(data.Rows) == 0 {
		return fmt.Errorf("no rows selected")
	}
	if err := a.csv.Write(w, data); err != nil {
		return err
	}
	a.logger.Info("exported selection", zap.String("format", "csv"), zap.Int("rows", len(data.Rows)))
	return nil
}

// ExportPDF writes the selected rows as a PDF table.
func (a *ActionBar[R]) ExportPDF(w io.Writer, title string) error {
	data := a.Dataset()
	if len(data.Rows) == 0 {
		return fmt.Errorf("no rows selected")
	}
	out, err := a.pdf.Render(data, title)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	a.logger.Info("exported selection", zap.String("format", "pdf"), zap.Int("rows", len(data.Rows)))
	return nil
}

// Delete removes the selected rows and clears the selection on success.
func (a *ActionBar[R]) Delete(ctx context.Context) error {
	if a.deleter == nil {
		return fmt.Errorf("delete is not available for this table")
	}
	ids := a.table.SelectedRowIDs()
	if len(ids) == 0 {
		return nil
	}
	if err := a.deleter.Delete(ctx, ids); err != nil {
		a.logger.Warn("bulk delete failed", zap.Int("rows", len(ids)), zap.Error(err))
		if !notify.Surfaced(err) {
			a.notifier.Notify(notify.LevelError, "Could not delete the selected rows.")
		}
		return err
	}
	a.table.ResetRowSelection()
	a.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("%d row(s) deleted.", len(ids)))
	return nil
}
