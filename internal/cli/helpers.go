package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/sma-adp-datatable/internal/client"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/toolbar"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/pkg/config"
	"github.com/noah-isme/sma-adp-datatable/pkg/logger"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	tokens    client.TokenStore
	codec     *searchparams.Codec
	formatter toolbar.Formatter
	apiURL    string
	logFile   bool
	stdout    io.Writer
	stderr    io.Writer
	isTTY     func() bool
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logPath, _ := cmd.Flags().GetString("log-file")
	cfg.Log.Format = "console"
	cfg.Log.Level = "error"
	if verbose {
		cfg.Log.Level = "debug"
	}
	var paths []string
	if logPath != "" {
		paths = []string{logPath}
	}
	logr, err := logger.NewConsole(cfg, paths...)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logr
	a.logFile = logPath != ""
	a.apiURL = cfg.Console.APIURL
	if flag, _ := cmd.Flags().GetString("api-url"); flag != "" {
		a.apiURL = strings.TrimRight(flag, "/")
	}
	if a.tokens == nil {
		if cfg.Console.Token != "" {
			a.tokens = client.NewMemoryStore(cfg.Console.Token)
		} else {
			a.tokens = client.NewKeyringStore(cfg.Console.KeyringService, logr)
		}
	}
	a.codec = searchparams.NewCodec(searchparams.WithPerPage(cfg.Table.DefaultPerPage, cfg.Table.MaxPerPage))
	a.formatter = toolbar.Formatter{DateLayout: cfg.Console.DateLayout}
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
	if a.isTTY == nil {
		a.isTTY = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	}
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newClient builds an API client whose failure toasts go to notifier.
func (a *app) newClient(notifier notify.Notifier, log *zap.Logger) *client.Client {
	return client.New(a.apiURL,
		client.WithTimeout(a.cfg.Console.Timeout),
		client.WithTokenStore(a.tokens),
		client.WithLogger(log),
		client.WithNotifier(notifier),
		client.OnUnauthorized(func() {
			log.Info("token rejected, run smactl login again")
		}),
	)
}

// tuiLogger keeps log lines off the alternate screen unless they go to a file.
func (a *app) tuiLogger() *zap.Logger {
	if a.logFile {
		return a.logger
	}
	return zap.NewNop()
}

// queryOptions are the flags shared by commands that read a table.
type queryOptions struct {
	query   string
	page    int
	perPage int
	view    string
	filters []string
	match   string
	sort    []string
}

func (o *queryOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.query, "query", "q", "", "URL query string, e.g. 'page=2&sort=[{\"id\":\"full_name\",\"desc\":false}]'")
	cmd.Flags().IntVar(&o.page, "page", 0, "page number (overrides --query)")
	cmd.Flags().IntVar(&o.perPage, "per-page", 0, "rows per page (overrides --query)")
	cmd.Flags().StringVar(&o.view, "view", "", "saved view id or name to load")
	cmd.Flags().StringArrayVarP(&o.filters, "filter", "f", nil, "filter as column=value, column:operator=value or column:isEmpty (repeatable)")
	cmd.Flags().StringVar(&o.match, "match", "", "combine filters with all (and) or any (or)")
	cmd.Flags().StringSliceVar(&o.sort, "sort", nil, "sort keys, e.g. grade,-full_name (a leading - sorts descending)")
}

// filterFlag is one parsed --filter value.
type filterFlag struct {
	column   string
	operator models.Operator
	value    string
}

// parseFilterFlag splits "column[:operator][=value]".
func parseFilterFlag(raw string) (filterFlag, error) {
	lhs, value, hasValue := strings.Cut(raw, "=")
	column, op, _ := strings.Cut(lhs, ":")
	f := filterFlag{column: strings.TrimSpace(column), operator: models.Operator(strings.TrimSpace(op)), value: value}
	if f.column == "" {
		return filterFlag{}, fmt.Errorf("--filter %q: missing column", raw)
	}
	if !hasValue && !f.operator.Valueless() {
		return filterFlag{}, fmt.Errorf("--filter %q: expected column=value", raw)
	}
	return f, nil
}

// joinFor maps --match to a join operator.
func joinFor(match string) (models.JoinOperator, error) {
	switch strings.ToLower(strings.TrimSpace(match)) {
	case "all", "and":
		return models.JoinAnd, nil
	case "any", "or":
		return models.JoinOr, nil
	default:
		return "", fmt.Errorf("--match must be all or any, got %q", match)
	}
}

// values merges the raw query with the explicit flags.
func (o *queryOptions) values() (url.Values, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(o.query), "?"))
	if err != nil {
		return nil, fmt.Errorf("parse --query: %w", err)
	}
	if o.page > 0 {
		values.Set(searchparams.KeyPage, strconv.Itoa(o.page))
	}
	if o.perPage > 0 {
		values.Set(searchparams.KeyPerPage, strconv.Itoa(o.perPage))
	}
	return values, nil
}
