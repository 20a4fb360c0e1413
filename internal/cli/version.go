package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/slate/pkg/slate"
)

const modulePath = "github.com/mesh-intelligence/slate"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the slate version",
		Args:  cobra.NoArgs,
		// version needs neither configuration nor a logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "slate v%s\nmodule: %s\n", slate.Version, modulePath)
			return nil
		},
	}
}
