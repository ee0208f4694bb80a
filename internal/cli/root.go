package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagenav",
	Short: "Page through large SQL tables with cursor navigation",
	Long: `pagenav browses a table page by page using keyset cursors: next, previous,
first and last page, page size, sorting and filters, with exact counts
shared through an optional Redis cache.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	registerGlobalFlags(rootCmd.PersistentFlags())
}

func registerGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file path")
	fs.String("log-level", "", "log level (debug, info, warning, error)")
	fs.String("log-format", "", "log format (text, json)")
}

func newLogger(c LogConfig, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	if c.Level != "" {
		level, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		logger.SetLevel(level)
	}

	switch c.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	return logger, nil
}
