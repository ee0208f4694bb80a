package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/Alp4ka/pagenav"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pagenav.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func Test_LoadFromFile(t *testing.T) {
	path := writeConfig(t, `
driver: postgres
dsn: postgres://localhost/app
redis: localhost:6379
count_ttl: 30s
lookahead: true
log:
  level: debug
  format: json
page:
  source:
    path: tenants/42/orders
  limit: 25
  order_by:
    - column: created_at
      direction: DESC
    - column: id
      direction: DESC
  where:
    - column: status
      operator: "=="
      value: done
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, DriverPostgres, cfg.Driver)
	require.Equal(t, "postgres://localhost/app", cfg.DSN)
	require.Equal(t, "localhost:6379", cfg.Redis)
	require.Equal(t, 30*time.Second, cfg.CountTTL)
	require.True(t, cfg.Lookahead)
	require.False(t, cfg.Pseudo)
	require.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	require.Equal(t, pagenav.DefaultParentColumn, cfg.ParentColumn)

	require.Equal(t, "orders", cfg.Page.Source.Collection())
	require.Equal(t, "tenants/42", cfg.Page.Source.Parent())
	require.Equal(t, 25, cfg.Page.Limit)
	require.Equal(t, pagenav.Orderings{
		{Column: "created_at", Direction: pagenav.DirectionDESC},
		{Column: "id", Direction: pagenav.DirectionDESC},
	}, cfg.Page.OrderBy)
	require.Len(t, cfg.Page.Where, 1)
	require.Equal(t, pagenav.OperatorEq, cfg.Page.Where[0].Operator)
	require.Equal(t, "done", cfg.Page.Where[0].Value)
}

func Test_LoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	_, err = LoadFromFile(writeConfig(t, "page:\n  limit: [1, 2]\n"))
	require.ErrorContains(t, err, "failed to parse config file")
}

func Test_SaveToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = "app.db"
	cfg.Page.Source.Path = "orders"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.DSN, loaded.DSN)
	require.Equal(t, cfg.Page.Source, loaded.Page.Source)
	require.Equal(t, cfg.CountTTL, loaded.CountTTL)
}

func Test_Config_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.DSN = "app.db"
		cfg.Page.Source.Path = "orders"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(cfg *Config) { cfg.Driver = "oracle" }, "unsupported driver 'oracle'"},
		{"empty dsn", func(cfg *Config) { cfg.DSN = "" }, "dsn cannot be empty"},
		{"empty path", func(cfg *Config) { cfg.Page.Source.Path = "/" }, "collection path cannot be empty"},
		{
			"bad operator",
			func(cfg *Config) {
				cfg.Page.Where = []pagenav.Where{{Column: "a", Operator: "~", Value: 1}}
			},
			"filter on 'a'",
		},
		{
			"bad direction",
			func(cfg *Config) {
				cfg.Page.OrderBy = pagenav.Orderings{{Column: "a", Direction: "UP"}}
			},
			"invalid ordering direction 'UP'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func parseBrowseFlags(t *testing.T, args ...string) (*pflag.FlagSet, *browseFlags) {
	t.Helper()

	var f browseFlags
	fs := pflag.NewFlagSet("browse", pflag.ContinueOnError)
	registerGlobalFlags(fs)
	f.register(fs)
	require.NoError(t, fs.Parse(args))

	return fs, &f
}

func Test_loadConfig(t *testing.T) {
	path := writeConfig(t, `
driver: sqlite
dsn: file.db
page:
  source:
    path: orders
  limit: 5
`)

	fs, f := parseBrowseFlags(t,
		"--config", path,
		"--limit", "7",
		"--sort", "name asc",
		"--sort", "id asc",
		"--where", "status = done",
		"--pseudo",
	)

	cfg, err := loadConfig(fs, f)
	require.NoError(t, err)

	require.Equal(t, "file.db", cfg.DSN)
	require.Equal(t, 7, cfg.Page.Limit)
	require.True(t, cfg.Pseudo)
	require.Equal(t, pagenav.Orderings{
		{Column: "name", Direction: pagenav.DirectionASC},
		{Column: "id", Direction: pagenav.DirectionASC},
	}, cfg.Page.OrderBy)
	require.Equal(t, []pagenav.Where{{Column: "status", Operator: pagenav.OperatorEq, Value: "done"}}, cfg.Page.Where)
}

func Test_loadConfig_Invalid(t *testing.T) {
	fs, f := parseBrowseFlags(t, "--driver", "sqlite")

	_, err := loadConfig(fs, f)
	require.ErrorContains(t, err, "dsn cannot be empty")
}

func Test_newLogger(t *testing.T) {
	_, err := newLogger(LogConfig{Level: "loud"}, os.Stderr)
	require.ErrorContains(t, err, "invalid log level")

	logger, err := newLogger(LogConfig{Level: "debug", Format: "json"}, os.Stderr)
	require.NoError(t, err)
	require.Equal(t, "debug", logger.GetLevel().String())
}
