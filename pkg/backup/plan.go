package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/device"
)

// Plan is the resolved picture of one run before anything is touched.
type Plan struct {
	SourceDir   string
	SourceFiles int
	SourceSize  datasize.ByteSize
	Device      device.Device
	MountPoint  string
	NeedsMount  bool
	DestDir     string
	Engine      string
	Verify      bool
}

// BuildPlan resolves the source folder and the destination volume, decides
// whether the volume must be mounted, and derives the destination directory.
// Nothing is mounted or written here.
func BuildPlan(ctx context.Context, cfg config.Config, devices device.Enumerator) (Plan, error) {
	src, err := FindSourceDir(cfg.Source.Root, cfg.Source.Pattern, cfg.Source.MaxDepth)
	if err != nil {
		return Plan{}, err
	}
	files, size, err := TreeSize(src)
	if err != nil {
		return Plan{}, err
	}

	all, err := devices.Partitions(ctx)
	if err != nil {
		return Plan{}, errors.Wrap(err, "enumerating removable volumes")
	}
	dev, ok := device.Match(all, cfg.Device.Labels)
	if !ok {
		return Plan{}, errors.Wrapf(device.ErrNoMatchingDevice,
			"labels %s across %d removable volumes", strings.Join(cfg.Device.Labels, ", "), len(all))
	}

	mountPoint := dev.MountPoint
	if mountPoint == "" {
		if mp, mounted := device.MountPointOf(dev.Path); mounted {
			mountPoint = mp
		}
	}
	needsMount := mountPoint == ""
	if needsMount {
		mountPoint = cfg.Device.MountPoint
	}

	destDir := mountPoint
	if cfg.Sync.Subdir != "" {
		destDir = filepath.Join(mountPoint, cfg.Sync.Subdir)
	}

	return Plan{
		SourceDir:   src,
		SourceFiles: files,
		SourceSize:  size,
		Device:      dev,
		MountPoint:  mountPoint,
		NeedsMount:  needsMount,
		DestDir:     destDir,
		Engine:      cfg.Sync.Engine,
		Verify:      cfg.Sync.Verify,
	}, nil
}

// String renders the plan for review, one line per decision.
func (p Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup plan: %s -> %s\n", p.SourceDir, p.DestDir)
	fmt.Fprintf(&b, "  - source: %d files, %s\n", p.SourceFiles, p.SourceSize.HumanReadable())
	fmt.Fprintf(&b, "  - volume: %s label=%q size=%s\n", p.Device.Path, p.Device.Label, p.Device.Size.HumanReadable())
	if p.NeedsMount {
		fmt.Fprintf(&b, "  - mount: %s on %s\n", p.Device.Path, p.MountPoint)
	} else {
		fmt.Fprintf(&b, "  - mount: already mounted at %s\n", p.MountPoint)
	}
	fmt.Fprintf(&b, "  - engine: %s\n", p.Engine)
	if p.Verify {
		b.WriteString("  - verify: compare the trees after the sync\n")
	}
	return b.String()
}
