package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/backup"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/logging"
)

// runOptions carries the knobs that are not configuration: they shape the
// invocation, not the backup.
type runOptions struct {
	dryRun   bool
	schedule string
}

func newRunCmd() *cobra.Command {
	defaults := config.Default()
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Back up the source folder onto the USB volume",
		Long: `run performs one backup: it checks the required tools, rotates the run
log, locates the newest folder matching the source pattern, picks the first
removable volume whose label matches, mounts it when necessary, mirrors the
folder onto it, and unmounts anything it mounted. With --schedule it keeps
running and starts a backup on every cron trigger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile(cmd), cmd.Flags())
			if err != nil {
				return err
			}
			return runBackup(cmd, cfg, opts)
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&opts.dryRun, "dry-run", false, "print the plan and the steps without touching anything")
	fl.StringVar(&opts.schedule, "schedule", "", "cron expression; keep running and start a backup on every trigger")
	fl.String("source-root", defaults.Source.Root, "storage root searched for the backup folder")
	fl.String("source-pattern", defaults.Source.Pattern, "glob matched against folder names under the root")
	fl.Int("max-depth", defaults.Source.MaxDepth, "how many levels below the root to search")
	fl.StringSlice("labels", defaults.Device.Labels, "label substrings that identify the USB volume")
	fl.String("mount-point", defaults.Device.MountPoint, "where to mount the volume when nothing mounted it yet")
	fl.String("min-free", defaults.Device.MinFree.String(), "extra free space demanded on top of the source size")
	fl.String("engine", defaults.Sync.Engine, "sync engine, rsync or copy")
	fl.StringSlice("extra-args", nil, "additional arguments appended to the rsync command")
	fl.String("subdir", defaults.Sync.Subdir, "directory on the volume to mirror into")
	fl.Bool("verify", defaults.Sync.Verify, "compare source and destination byte for byte after the sync")
	fl.String("log-file", defaults.Log.Path, "run log file")
	fl.Int("log-max-lines", defaults.Log.MaxLines, "line cap applied to the run log before each run")
	fl.String("transfer-log", defaults.Log.TransferPath, "file receiving raw rsync output")
	fl.String("lock-file", defaults.Lock.Path, "run lock file")

	return cmd
}

func runBackup(cmd *cobra.Command, cfg config.Config, opts *runOptions) error {
	logOpts := logging.Options{Level: cfg.Log.Level, Path: cfg.Log.Path, MaxLines: cfg.Log.MaxLines}
	if opts.dryRun {
		// A dry run must not touch the filesystem, the run log included.
		logOpts.Path = ""
	}
	if err := logging.Configure(logOpts); err != nil {
		return err
	}

	runner := backup.NewRunner(cfg)
	runner.Out = cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.schedule != "" && !opts.dryRun {
		return backup.RunOnSchedule(ctx, opts.schedule, func(ctx context.Context) error {
			_, err := runner.Run(ctx, false)
			return err
		})
	}

	_, err := runner.Run(ctx, opts.dryRun)
	return err
}
