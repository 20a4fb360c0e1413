// Package cli implements the slate command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/logging"
	"github.com/mesh-intelligence/slate/internal/paths"
	"github.com/mesh-intelligence/slate/pkg/slate"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds global flag values and the state shared by subcommands.
type app struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	logFile   string

	v      *viper.Viper
	logger *zap.Logger
}

// NewRootCmd creates the top-level "slate" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "slate",
		Short: "A schema-validated entity and relationship store",
		Long: `Slate stores typed entities whose link fields stay consistent in both
directions. Entity types and fields are declared first; entities are then
created, queried, updated, retired and revived by type.`,
		Version:           slate.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $SLATE_CONFIG_DIR)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.slate)")
	pf.StringVar(&a.backend, cfgKeyBackend, "", "storage backend: json, sqlite, memory")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFile, "log-file", "", "write rotated JSON logs to this file")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newSchemaCmd())
	root.AddCommand(a.newCreateCmd())
	root.AddCommand(a.newFindCmd())
	root.AddCommand(a.newUpdateCmd())
	root.AddCommand(a.newDeleteCmd())
	root.AddCommand(a.newReviveCmd())
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "slate:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps storage failures to exitSysError and everything else to
// exitUserError.
func exitCode(err error) int {
	if errors.Is(err, types.ErrStorage) {
		return exitSysError
	}
	return exitUserError
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.configDir = configDir

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	bind(v, cmd, cfgKeyBackend, cfgKeyBackend)
	bind(v, cmd, cfgKeyLogLevel, "log-level")
	bind(v, cmd, cfgKeyLogFile, "log-file")
	a.v = v

	logger, err := logging.New(logging.Options{
		Level: v.GetString(cfgKeyLogLevel),
		File:  v.GetString(cfgKeyLogFile),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// resolveDataDir applies --data-dir > $SLATE_DATA_DIR > config data_dir >
// $(CWD)/.slate. Viper already prefers the environment over the file.
func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.dataDir, a.v.GetString(cfgKeyDataDir))
}

// config returns the store configuration for the resolved flags and file.
func (a *app) config(create bool) (types.Config, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend: a.v.GetString(cfgKeyBackend),
		DataDir: dataDir,
		Create:  create,
	}, nil
}

// openStore opens the configured store. The caller must Close it.
func (a *app) openStore() (*slate.Store, error) {
	cfg, err := a.config(false)
	if err != nil {
		return nil, err
	}
	s, err := slate.Open(cfg, slate.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open store (run 'slate init' first?): %w", err)
	}
	return s, nil
}

// withStore runs fn against an open store.
func (a *app) withStore(fn func(s *slate.Store) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
