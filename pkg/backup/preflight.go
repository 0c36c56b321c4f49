package backup

import (
	"os/exec"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/device"
)

// RequiredBinaries lists the external commands a run with the given engine
// shells out to.
func RequiredBinaries(engine string) []string {
	bins := []string{"lsblk", "mount", "umount"}
	if engine == config.EngineRsync {
		bins = append(bins, "rsync")
	}
	return bins
}

// CheckDependencies verifies the required binaries resolve through PATH
// before the run touches anything.
func CheckDependencies(engine string) error {
	return checkDependencies(exec.LookPath, engine)
}

func checkDependencies(lookPath func(string) (string, error), engine string) error {
	var missing []string
	for _, bin := range RequiredBinaries(engine) {
		if _, err := lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required commands: %s", strings.Join(missing, ", "))
	}
	return nil
}

// CheckFreeSpace fails when the filesystem at path cannot take need bytes.
func CheckFreeSpace(path string, need datasize.ByteSize) error {
	free, err := device.FreeSpace(path)
	if err != nil {
		return err
	}
	if free < need {
		return errors.Errorf("not enough space on %s: need %s, %s free",
			path, need.HumanReadable(), free.HumanReadable())
	}
	return nil
}
