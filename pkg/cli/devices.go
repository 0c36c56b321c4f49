package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/device"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/logging"
)

// devicesSource enumerates the removable volumes for the devices command.
var devicesSource device.Enumerator = device.NewLsblk()

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List removable volumes and show which one would be picked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile(cmd), cmd.Flags())
			if err != nil {
				return err
			}
			if err := logging.Configure(logging.Options{Level: cfg.Log.Level}); err != nil {
				return err
			}
			return listDevices(cmd, cfg)
		},
	}

	cmd.Flags().StringSlice("labels", config.Default().Device.Labels, "label substrings to match against")

	return cmd
}

func listDevices(cmd *cobra.Command, cfg config.Config) error {
	devices, err := devicesSource.Partitions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		fmt.Fprintln(out, "no removable volumes found")
		return nil
	}

	fmt.Fprintf(out, "%-12s %-20s %10s  %-24s %s\n", "DEVICE", "LABEL", "SIZE", "MOUNTPOINT", "MATCH")
	for _, d := range devices {
		label, mnt, match := d.Label, d.MountPoint, ""
		if label == "" {
			label = "-"
		}
		if mnt == "" {
			mnt = "-"
		}
		if d.LabelMatches(cfg.Device.Labels) {
			match = "yes"
		}
		fmt.Fprintf(out, "%-12s %-20s %10s  %-24s %s\n", d.Path, label, d.Size.HumanReadable(), mnt, match)
	}
	return nil
}
