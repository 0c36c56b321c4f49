package device

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Mounter attaches and detaches volumes.
type Mounter interface {
	Mount(ctx context.Context, devPath, target string) error
	Unmount(ctx context.Context, target string) error
}

// ExecMounter shells out to mount(8) and umount(8), the same commands an
// operator would run by hand. Mounting usually needs root.
type ExecMounter struct{}

func (ExecMounter) Mount(ctx context.Context, devPath, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Wrapf(err, "creating mount point %s", target)
	}
	return runCmd(ctx, "mount", devPath, target)
}

func (ExecMounter) Unmount(ctx context.Context, target string) error {
	return runCmd(ctx, "umount", target)
}

// runCmd executes one external command, logging the shell-quoted command line
// and folding the command's output into the error on failure.
func runCmd(ctx context.Context, name string, args ...string) error {
	quoted := shellescape.QuoteCommand(append([]string{name}, args...))
	log.Ctx(ctx).Debug().Str("cmd", quoted).Msg("exec")
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return errors.Wrapf(err, "%s: %s", quoted, msg)
		}
		return errors.Wrap(err, quoted)
	}
	return nil
}
