package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/probgen/internal/config"
	"github.com/abhisek/probgen/internal/logging"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "probgen",
	Short: "Parametric problem templates and generation",
	Long: `probgen validates parametric problem templates, previews generated
instances, publishes question batches and grades submissions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PROBGEN_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./config.yaml or ~/.config/probgen/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// appConfig is loaded once per invocation by the root pre-run hook.
var appConfig *config.Config

func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	appConfig = cfg
	return nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured database.path, then PROBGEN_DB or the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if appConfig != nil && appConfig.Database.Path != "" {
		return appConfig.Database.Path, store.EnsureDir(appConfig.Database.Path)
	}
	return store.DefaultDBPath()
}

// appLogger is built on first use so every command shares one set of
// log writers.
var appLogger *zap.Logger

// newLogger returns the configured logger. CLI commands log to stderr only
// at warn and above unless --log-level says otherwise.
func newLogger(cmd *cobra.Command) *zap.Logger {
	if appLogger != nil {
		return appLogger
	}
	cfg := appConfig.Log
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl == "" && cmd.Name() != "serve" {
		cfg.Level = "warn"
	}
	logger, err := logging.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: logging disabled:", err)
		logger = zap.NewNop()
	}
	appLogger = logger
	return logger
}

// openService opens the store and builds a service over it. The returned
// close func releases both.
func openService(cmd *cobra.Command, opts ...service.Option) (*service.Service, func(), error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger := newLogger(cmd)
	opts = append([]service.Option{service.WithLogger(logger)}, opts...)
	svc := service.New(st, appConfig.EngineConfig(), opts...)
	return svc, func() {
		_ = logger.Sync()
		st.Close()
	}, nil
}
