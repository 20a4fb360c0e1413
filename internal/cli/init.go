package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/slate/pkg/slate"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize slate configuration and storage",
		Long: `Create the configuration directory and config.yaml if missing, then create
an empty data file for the configured backend. Running init again is harmless.`,
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	cfg, err := a.config(true)
	if err != nil {
		return err
	}
	written, err := writeConfigIfMissing(a.configDir, configFile{
		Backend: cfg.Backend,
		DataDir: cfg.DataDir,
	})
	if err != nil {
		return err
	}

	s, err := slate.Open(cfg, slate.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	if written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s/%s\n", a.configDir, configFileExt)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "slate initialized (%s backend in %s)\n", cfg.Backend, cfg.DataDir)
	return nil
}
