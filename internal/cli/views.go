package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/toolbar"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/views"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/resources"
	"github.com/noah-isme/sma-adp-datatable/internal/ui"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
)

func newViewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Manage saved views",
		Long: `Saved views are named filter, sort and column snapshots shared with
the dashboard. A view can be referenced by id or by name.`,
	}
	cmd.AddCommand(
		newViewsListCmd(a),
		newViewsSaveCmd(a),
		newViewsRenameCmd(a),
		newViewsUpdateCmd(a),
		newViewsDeleteCmd(a),
		newViewsDiffCmd(a),
	)
	return cmd
}

// liveState is a table state described on the command line.
type liveState struct {
	query   string
	columns []string
}

func (l *liveState) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&l.query, "query", "q", "", "URL query string holding the filters and sort")
	cmd.Flags().StringSliceVar(&l.columns, "columns", nil, "visible column ids (default: the table's default columns)")
}

func (l *liveState) resolve(a *app, table string) (models.SearchParams, []string, error) {
	params, err := a.codec.DecodeQuery(l.query)
	if err == nil {
		err = a.codec.Validate(params, resources.Defs(table))
	}
	if err != nil {
		var verr *searchparams.ValidationError
		if errors.As(err, &verr) {
			return models.SearchParams{}, nil, fmt.Errorf("invalid --query: %w", verr)
		}
		return models.SearchParams{}, nil, err
	}
	cols := l.columns
	if len(cols) == 0 {
		cols = resources.DefaultColumns(table)
	}
	for _, id := range cols {
		if _, ok := columns.Find(resources.Defs(table), id); !ok {
			return models.SearchParams{}, nil, fmt.Errorf("unknown column %q for %s", id, table)
		}
	}
	return params, cols, nil
}

func openViews(ctx context.Context, a *app, table string) (*views.Manager, error) {
	if !resources.Known(table) {
		return nil, fmt.Errorf("unknown table %q (want one of %s)", table, strings.Join(resources.Names, ", "))
	}
	notifier := ui.NewWriterNotifier(a.stderr)
	mgr := views.NewManager(table, a.newClient(notifier, a.logger), a.codec.Defaults(),
		views.WithLogger(a.logger), views.WithNotifier(notifier))
	if err := mgr.Load(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

func tableArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return resources.Names, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func newViewsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "list <table>",
		Short:             "List the saved views of a table",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			defs := resources.Defs(args[0])
			rows := make([][]string, 0, len(mgr.List()))
			for _, v := range mgr.List() {
				rows = append(rows, []string{v.ID, v.Name, strings.Join(v.Columns, ","), summarize(a.formatter, v.SearchParams, defs), v.UpdatedAt.Local().Format("2006-01-02 15:04")})
			}
			ui.PrintPlainTable(a.stdout, []string{"ID", "NAME", "COLUMNS", "FILTERS", "UPDATED"}, rows)
			return nil
		},
	}
}

func newViewsSaveCmd(a *app) *cobra.Command {
	var live liveState
	cmd := &cobra.Command{
		Use:   "save <table> <name>",
		Short: "Save a table state as a new view",
		Example: `  smactl views save students "Grade 10" -q 'filters=[{"id":"grade","value":["10"]}]'
  smactl views save teachers "No NIP" -q 'filters=[{"id":"nip","value":"","operator":"isEmpty"}]' --columns full_name,email`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, cols, err := live.resolve(a, args[0])
			if err != nil {
				return err
			}
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			view, err := mgr.Create(cmd.Context(), args[1], params, cols)
			if errors.Is(err, views.ErrCannotSave) {
				return errors.New("the query matches the table defaults; add a filter, sort or join before saving")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, view.ID)
			return nil
		},
	}
	live.register(cmd)
	return cmd
}

func newViewsRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "rename <table> <view> <new-name>",
		Short:             "Rename a view",
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			view, err := findView(mgr, args[1])
			if err != nil {
				return err
			}
			_, err = mgr.Rename(cmd.Context(), view.ID, args[2])
			return err
		},
	}
}

func newViewsUpdateCmd(a *app) *cobra.Command {
	var live liveState
	cmd := &cobra.Command{
		Use:               "update <table> <view>",
		Short:             "Overwrite a view with a new table state",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, cols, err := live.resolve(a, args[0])
			if err != nil {
				return err
			}
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			view, err := findView(mgr, args[1])
			if err != nil {
				return err
			}
			if _, err := mgr.Select(view.ID); err != nil {
				return err
			}
			if !mgr.CanUpdate(params, cols) {
				fmt.Fprintln(a.stderr, styles.MutedMsg("View already matches; nothing to update."))
				return nil
			}
			_, err = mgr.Update(cmd.Context(), params, cols)
			return err
		},
	}
	live.register(cmd)
	return cmd
}

func newViewsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <table> <view>",
		Aliases:           []string{"rm"},
		Short:             "Delete a view",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			view, err := findView(mgr, args[1])
			if err != nil {
				return err
			}
			return mgr.Delete(cmd.Context(), view.ID)
		},
	}
}

func newViewsDiffCmd(a *app) *cobra.Command {
	var live liveState
	cmd := &cobra.Command{
		Use:   "diff <table> <view>",
		Short: "Show how a table state differs from a view",
		Long: `Compare a view against the state given by --query and --columns. Without
them the view is compared against the table's defaults. Lines starting
with - are only in the view, lines starting with + only in the state.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: tableArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, cols, err := live.resolve(a, args[0])
			if err != nil {
				return err
			}
			mgr, err := openViews(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			view, err := findView(mgr, args[1])
			if err != nil {
				return err
			}
			if _, err := mgr.Select(view.ID); err != nil {
				return err
			}
			diff, err := mgr.Diff(params, cols)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(a.stdout, styles.SuccessMsg("No differences."))
				return nil
			}
			for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
				fmt.Fprintln(a.stdout, styles.DiffLine(line))
			}
			return nil
		},
	}
	live.register(cmd)
	return cmd
}

// summarize renders a view's filters as badges text.
func summarize(fm toolbar.Formatter, params models.ViewParams, defs []models.ColumnDef) string {
	if len(params.Filters) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params.Filters))
	for _, f := range params.Filters {
		col, _ := columns.Find(defs, f.ID)
		parts = append(parts, fm.Badge(f, col))
	}
	sep := "; "
	if params.JoinOperator == models.JoinOr {
		sep = " | "
	}
	return strings.Join(parts, sep)
}
