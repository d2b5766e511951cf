package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitsend/packages/core/config"
	"github.com/abdul-hamid-achik/hitsend/packages/db"
	"github.com/abdul-hamid-achik/hitsend/packages/logging"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	dataDirFlag   string
	dbFlag        string
	workspaceFlag string
	logLevelFlag  string
	noColorFlag   bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hitsend",
		Short: "Send HTTP requests and keep every response.",
		Long: `hitsend executes stored HTTP requests, streams each response body to disk
and records the exchange in a local database, including cookies set by
the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFlag, "config", os.Getenv("HITSEND_CONFIG"), "Path to config file (env: HITSEND_CONFIG)")
	flags.StringVar(&dataDirFlag, "data-dir", "", "Directory for the database and response bodies (env: HITSEND_DATA_DIR)")
	flags.StringVar(&dbFlag, "db", "", "Database location, a path or sqlite:// URL (env: HITSEND_DB)")
	flags.StringVar(&workspaceFlag, "workspace", "", "Workspace id (env: HITSEND_WORKSPACE)")
	flags.StringVar(&logLevelFlag, "log-level", "", "Log level: trace, debug, info, warn, error, off (env: HITSEND_LOG_LEVEL)")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: HITSEND_NO_COLOR)")

	root.AddCommand(sendCmd)
	root.AddCommand(historyCmd)
	root.AddCommand(showCmd)
	root.AddCommand(jarsCmd)
	root.AddCommand(validateCmd)
	root.AddCommand(importCmd)
	root.AddCommand(versionCmd)
	return root
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// loadConfig layers the config file, HITSEND_* variables and the persistent
// flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	cfg = cfg.Merge(config.FromEnv(os.LookupEnv))

	flags := &config.Config{}
	changed := cmd.Flags().Changed
	if changed("data-dir") {
		flags.DataDir = dataDirFlag
	}
	if changed("db") {
		flags.Database = dbFlag
	}
	if changed("workspace") {
		flags.Workspace = workspaceFlag
	}
	if changed("log-level") {
		flags.LogLevel = logLevelFlag
	}
	if changed("no-color") {
		flags.NoColor = config.BoolPtr(noColorFlag)
	}
	return cfg.Merge(flags), nil
}

// app bundles what every command needs once the config is resolved.
type app struct {
	cfg    *config.Config
	store  *db.Store
	logger zerolog.Logger
	out    io.Writer
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.GetNoColor() {
		color.NoColor = true
	}

	logger := logging.NewConsole(cfg.LogLevel, cmd.ErrOrStderr(), cfg.GetNoColor())

	store, err := db.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	logger.Debug().Str("db", store.Path()).Msg("database opened")

	return &app{cfg: cfg, store: store, logger: logger, out: cmd.OutOrStdout()}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// ensureWorkspace returns the configured workspace, creating it from the
// config defaults on first use.
func (a *app) ensureWorkspace(ctx context.Context) (models.Workspace, error) {
	ws, err := a.store.GetWorkspace(ctx, a.cfg.Workspace)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return ws, err
	}

	ws = models.NewWorkspace(a.cfg.Workspace, "Default")
	ws.SettingFollowRedirects = a.cfg.GetFollowRedirects()
	ws.SettingValidateCertificates = a.cfg.GetValidateSSL()
	ws.SettingRequestTimeout = a.cfg.Timeout
	a.logger.Info().Str("workspace", ws.ID).Msg("creating workspace")
	return a.store.UpsertWorkspace(ctx, ws)
}
