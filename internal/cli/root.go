// Package cli implements the smactl commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-adp-datatable/internal/client"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	CommitSHA = "unknown"
)

// NewRootCmd builds the smactl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smactl",
		Short: "Browse and filter SMA ADP tables from the terminal",
		Long: `smactl is a console client for the SMA ADP data-table API.

It lists, filters, sorts and exports students and teachers, and manages
the saved views shared with the web dashboard. Filters use the same URL
query format as the dashboard, so a link can be pasted with --query.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				styles.SetNoColor(true)
			}
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("smactl version %s\n  commit: %s\n", Version, CommitSHA))

	cmd.PersistentFlags().String("api-url", "", "API base URL (default from CONSOLE_API_URL)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests to stderr")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	cmd.AddCommand(
		newStudentsCmd(a),
		newTeachersCmd(a),
		newViewsCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
	)
	return cmd
}

// Execute runs smactl with os.Args.
func Execute() error {
	return run(NewRootCmd(), os.Stderr)
}

func run(cmd *cobra.Command, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		var apiErr *client.Error
		if errors.As(err, &apiErr) && apiErr.Surfaced() {
			return err
		}
		fmt.Fprintln(stderr, styles.ErrorMsg(err.Error()))
		return err
	}
	return nil
}
