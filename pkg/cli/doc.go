// Package cli provides the command-line interface of flashsync.
//
// The command tree has three subcommands: `run` performs (or schedules) a
// backup, `devices` lists the removable volumes and marks the one a run
// would pick, and `version` prints build metadata. Use `Run` as the entry
// point when embedding the CLI in other tools.
//
// Example usage:
//
//	if err := cli.Run(os.Args); err != nil {
//	    log.Error().Err(err).Msg("flashsync failed")
//	    os.Exit(1)
//	}
package cli
