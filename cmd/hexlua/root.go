package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/hexlua/internal/config"
	"github.com/dshills/hexlua/internal/storage"
)

// app holds state shared by every subcommand once config is loaded
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "hexlua",
		Short: "Hex Casting registry tools for Lua",
		Long: `hexlua turns the Hex Casting pattern registry into LuaLS definitions.

It resolves informal iota type descriptions such as "list of vec or null"
into LuaLS types, keeps a searchable SQLite index of registries and serves
everything over MCP.

Examples:
  hexlua resolve "list of vec"        Resolve one type description
  hexlua generate registry.json       Write hex.lua definitions
  hexlua index registry.json          Index a registry for search
  hexlua search "summon wisp"         Search the indexed registry
  hexlua serve                        Run the MCP server on stdio`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./hexlua.yaml or $XDG_CONFIG_HOME/hexlua/hexlua.yaml)")
	flags.String("db", "", "database path (default ~/.hexlua/hexlua.db)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.StringP("registry", "r", "", "registry.json path (default ./registry.json)")
	flags.Int("workers", 0, "concurrent resolvers while indexing (default: number of CPUs)")
	// BindPFlag only fails on a nil flag
	_ = a.v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyRegistry, flags.Lookup("registry"))
	_ = a.v.BindPFlag(config.KeyWorkers, flags.Lookup("workers"))

	root.AddCommand(
		newServeCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newResolveCmd(a),
		newGenerateCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger before any subcommand runs
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	a.logger.SetLevel(cfg.Level())
	a.logger.Debug("configuration loaded", "db", cfg.DBPath, "registry", cfg.Registry, "config", a.v.ConfigFileUsed())
	return nil
}

// openStorage opens the configured database, creating its directory
func (a *app) openStorage() (*storage.SQLiteStorage, error) {
	if err := a.cfg.EnsureDBDir(); err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// registryPath picks the positional argument when given, else the configured
// registry, and makes it absolute
func (a *app) registryPath(args []string) (string, error) {
	path := a.cfg.Registry
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve registry path: %w", err)
	}
	return abs, nil
}

// createOutput opens path for writing. An empty path or "-" means the
// command's stdout.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
