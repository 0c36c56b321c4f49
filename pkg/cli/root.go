package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Run is the entry point: it builds the command tree, wires signal handling
// into the context, and executes. args is os.Args, program name included.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("no arguments provided")
	}

	// A .env file can carry FLASHSYNC_* settings during development.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	root := NewRootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(ctx)
}

// NewRootCmd assembles the flashsync command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flashsync",
		Short: "Mirror a local-path backup folder onto a labeled USB volume",
		Long: `flashsync locates a backup folder under a storage root, finds a removable
volume by filesystem label, mounts it when nothing mounted it yet, mirrors the
folder onto it, and unmounts whatever it mounted itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "path to the configuration file")
	pf.String("log-level", config.Default().Log.Level, "log level: trace, debug, info, warn or error")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDevicesCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func configFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
