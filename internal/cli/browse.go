package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Alp4ka/pagenav"
)

// browseFlags holds the flag values of the browse command.
type browseFlags struct {
	driver       string
	dsn          string
	path         string
	group        bool
	limit        int
	sort         []string
	where        []string
	parentColumn string
	redis        string
	lookahead    bool
	pseudo       bool
}

func (f *browseFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.driver, "driver", "", "database driver (sqlite, postgres, mysql)")
	fs.StringVar(&f.dsn, "dsn", "", "database DSN")
	fs.StringVarP(&f.path, "path", "p", "", "collection path, e.g. orders or tenants/42/orders")
	fs.BoolVar(&f.group, "group", false, "query every collection with the path's name")
	fs.IntVarP(&f.limit, "limit", "l", 0, "page size")
	fs.StringArrayVarP(&f.sort, "sort", "s", nil, `ordering "column asc|desc", repeatable`)
	fs.StringArrayVarP(&f.where, "where", "w", nil, `filter "column op value", repeatable`)
	fs.StringVar(&f.parentColumn, "parent-column", "", "column holding the parent path of nested rows")
	fs.StringVar(&f.redis, "redis", "", "redis address for shared counts")
	fs.BoolVar(&f.lookahead, "lookahead", false, "fetch one extra row per page")
	fs.BoolVar(&f.pseudo, "pseudo", false, "continue pages by offset instead of keyset cursors")
}

var browseOpts browseFlags

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a table interactively",
	Long: `Browse a table page by page. Commands are read from stdin, one per line;
type "help" for the list.`,
	Example: `  pagenav browse --driver sqlite --dsn app.db --path orders --sort "id asc"
  pagenav browse -c pagenav.yaml --where "status = done" --lookahead`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseOpts.register(browseCmd.Flags())
}

// loadConfig reads the config file, if any, and applies the flags set in fs.
func loadConfig(fs *pflag.FlagSet, f *browseFlags) (*Config, error) {
	cfg := DefaultConfig()

	if path, _ := fs.GetString("config"); path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if fs.Changed("driver") {
		cfg.Driver = f.driver
	}
	if fs.Changed("dsn") {
		cfg.DSN = f.dsn
	}
	if fs.Changed("path") {
		cfg.Page.Source.Path = f.path
	}
	if fs.Changed("group") {
		cfg.Page.Source.Group = f.group
	}
	if fs.Changed("limit") {
		cfg.Page.Limit = f.limit
	}
	if fs.Changed("parent-column") {
		cfg.ParentColumn = f.parentColumn
	}
	if fs.Changed("redis") {
		cfg.Redis = f.redis
	}
	if fs.Changed("lookahead") {
		cfg.Lookahead = f.lookahead
	}
	if fs.Changed("pseudo") {
		cfg.Pseudo = f.pseudo
	}
	if level, _ := fs.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := fs.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	if fs.Changed("sort") {
		orderings, err := pagenav.ParseSort(f.sort, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid sort: %w", err)
		}
		cfg.Page.OrderBy = orderings
	}
	if fs.Changed("where") {
		filters, err := pagenav.ParseWhere(f.where, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		cfg.Page.Where = filters
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags(), &browseOpts)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	db, err := openDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []pagenav.Option{
		pagenav.WithLogger(logger),
		pagenav.WithMetrics(pagenav.NewMetrics("pagenav", reg)),
	}

	if cfg.Redis != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis})
		defer func() {
			if err := rc.Close(); err != nil {
				logger.WithError(err).Warn("failed to close redis client")
			}
		}()

		opts = append(opts, pagenav.WithCountCache(pagenav.NewRedisCountCache(rc, "pagenav:count"), cfg.CountTTL))
	}
	if cfg.Lookahead {
		opts = append(opts, pagenav.WithLookahead())
	}
	if cfg.Pseudo {
		opts = append(opts, pagenav.WithPseudoCursors())
	}

	logger.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"source": cfg.Page.Source.String(),
	}).Info("browsing")

	exec := pagenav.NewGormExecutor[Row](db).WithParentColumn(cfg.ParentColumn)
	s := newSession(exec, cfg.Page, reg, cmd.OutOrStdout(), opts...)

	return s.run(cmd.Context(), cmd.InOrStdin())
}
