package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/resources"
	"github.com/noah-isme/sma-adp-datatable/internal/ui"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/browse"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
	"github.com/noah-isme/sma-adp-datatable/pkg/storage"
)

var studentResource = resource[models.Student]{
	name:    resources.Students,
	title:   "Students",
	columns: resources.StudentColumns,
	hidden:  resources.StudentHidden,
	rowID:   models.StudentRowID,
}

var teacherResource = resource[models.Teacher]{
	name:    resources.Teachers,
	title:   "Teachers",
	columns: resources.TeacherColumns,
	hidden:  resources.TeacherHidden,
	rowID:   models.TeacherRowID,
}

func newStudentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "students",
		Aliases: []string{"student", "s"},
		Short:   "List, browse and export students",
	}
	cmd.AddCommand(
		newListCmd(a, studentResource),
		newBrowseCmd(a, studentResource),
		newExportCmd(a, studentResource),
		newDeactivateCmd(a, studentResource),
	)
	return cmd
}

func newTeachersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "teachers",
		Aliases: []string{"teacher", "t"},
		Short:   "List and browse teachers",
	}
	cmd.AddCommand(
		newListCmd(a, teacherResource),
		newBrowseCmd(a, teacherResource),
		newExportCmd(a, teacherResource),
		newDeactivateCmd(a, teacherResource),
	)
	return cmd
}

func newListCmd[R any](a *app, res resource[R]) *cobra.Command {
	var opts queryOptions
	var output string
	var plain bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of " + res.name,
		Long: fmt.Sprintf(`Print one page of %s.

On a terminal the interactive browser opens instead; pass --plain to force
the aligned text table. Piped output is always plain.`, res.name),
		Example: fmt.Sprintf(`  smactl %[1]s list
  smactl %[1]s list --page 2 --per-page 25
  smactl %[1]s list -q 'filters=[{"id":"full_name","value":"ani"}]' | less`, res.name),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "table" && !plain && a.isTTY() {
				return runBrowse(cmd, a, res, opts)
			}
			return runList(cmd, a, res, opts, output)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	cmd.Flags().BoolVar(&plain, "plain", false, "print a plain table even on a terminal")
	return cmd
}

func runList[R any](cmd *cobra.Command, a *app, res resource[R], opts queryOptions, output string) error {
	notifier := ui.NewWriterNotifier(a.stderr)
	s, err := openSession(cmd.Context(), a, res, notifier, a.logger)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.load(opts); err != nil {
		return err
	}
	if err := s.wait(); err != nil {
		return err
	}

	switch output {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s.ctrl.Table().Data())
	case "table":
		headers, rows := s.grid()
		ui.PrintPlainTable(a.stdout, headers, rows)
		params := s.ctrl.Params()
		fmt.Fprintln(a.stderr, styles.MutedMsg(fmt.Sprintf("page %d/%d · %d rows total · query: %s",
			params.Page, s.ctrl.Table().PageCount(), s.total, s.ctrl.Query())))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func newBrowseCmd[R any](a *app, res resource[R]) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse " + res.name + " interactively",
		Long: `Open the interactive table browser.

Move with the arrow keys, page with n/p, sort the focused column with s,
filter it with f and cycle its options with o. Press ? for every binding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.isTTY() {
				return errors.New("browse needs a terminal; use list to print rows")
			}
			return runBrowse(cmd, a, res, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runBrowse[R any](cmd *cobra.Command, a *app, res resource[R], opts queryOptions) error {
	toasts := ui.NewChanNotifier(32)
	log := a.tuiLogger()
	s, err := openSession(cmd.Context(), a, res, toasts, log)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.load(opts); err != nil {
		return err
	}
	exports, err := storage.NewLocalStorage(a.cfg.Console.ExportDir)
	if err != nil {
		return err
	}
	return browse.Run(cmd.Context(), browse.Config[R]{
		Title:      res.title,
		Controller: s.ctrl,
		Actions:    s.actions,
		Toasts:     toasts,
		Formatter:  a.formatter,
		Exports:    exports,
		Logger:     log,
	})
}

func newExportCmd[R any](a *app, res resource[R]) *cobra.Command {
	var opts queryOptions
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one page of " + res.name + " as CSV or PDF",
		Example: fmt.Sprintf(`  smactl %[1]s export --per-page 100 -o %[1]s.csv
  smactl %[1]s export --view "Grade 10" --format pdf -o grade10.pdf`, res.name),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if format == "" && strings.HasSuffix(strings.ToLower(out), ".pdf") {
				format = "pdf"
			}
			if format == "" {
				format = "csv"
			}
			if format != "csv" && format != "pdf" {
				return fmt.Errorf("unknown export format %q", format)
			}
			if format == "pdf" && out == "" {
				return errors.New("pdf export needs --out")
			}

			s, err := openSession(cmd.Context(), a, res, ui.NewWriterNotifier(a.stderr), a.logger)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.load(opts); err != nil {
				return err
			}
			if err := s.wait(); err != nil {
				return err
			}
			s.ctrl.Table().ToggleAllPageRows(true)
			if !s.actions.Visible() {
				fmt.Fprintln(a.stderr, styles.WarningMsg("No rows match; nothing exported."))
				return nil
			}

			write := func(w io.Writer) error {
				if format == "pdf" {
					return s.actions.ExportPDF(w, res.title)
				}
				return s.actions.ExportCSV(w)
			}
			if out == "" {
				return write(a.stdout)
			}
			store, err := storage.NewLocalStorage(a.cfg.Console.ExportDir)
			if err != nil {
				return err
			}
			path, err := store.Write(out, write)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stderr, styles.SuccessMsg(fmt.Sprintf("Exported %d row(s) to %s", s.ctrl.Table().SelectedCount(), path)))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "csv or pdf (default from --out extension, else csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, relative to CONSOLE_EXPORT_DIR (default stdout for csv)")
	return cmd
}

func newDeactivateCmd[R any](a *app, res resource[R]) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>...",
		Short: "Mark " + res.name + " inactive by business id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.newClient(ui.NewWriterNotifier(a.stderr), a.logger)
			out, err := c.BulkDeactivate(cmd.Context(), res.name, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, styles.SuccessMsg(fmt.Sprintf("%d of %d %s deactivated", out.Affected, len(args), res.name)))
			return nil
		},
	}
}
