package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flashsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "flashsync", version.Get().String())
		},
	}
}
