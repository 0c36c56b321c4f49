package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/logging"
)

// Engine mirrors a source directory onto a destination directory.
type Engine interface {
	Name() string
	Sync(ctx context.Context, src, dst string) error
}

// RsyncEngine shells out to rsync(8). Its raw output is far too chatty for
// the run log, so it streams to a separate size-rotated transfer log.
type RsyncEngine struct {
	// ExtraArgs are appended to the default argument list.
	ExtraArgs []string

	// LogPath is where rsync output lands. Output overrides it when set.
	LogPath string
	Output  io.Writer
}

func (e *RsyncEngine) Name() string { return config.EngineRsync }

// BuildRsyncArgs assembles the rsync argument list for one mirror run. The
// trailing slash on the source makes rsync copy the directory's contents
// instead of the directory itself; the one on the destination keeps the pair
// symmetric.
func BuildRsyncArgs(src, dst string, extra []string) []string {
	args := []string{"-a", "--delete"}
	args = append(args, extra...)
	args = append(args, filepath.Clean(src)+"/", filepath.Clean(dst)+"/")
	return args
}

func (e *RsyncEngine) Sync(ctx context.Context, src, dst string) error {
	out, closeOut := e.output()
	defer closeOut()

	args := BuildRsyncArgs(src, dst, e.ExtraArgs)
	quoted := shellescape.QuoteCommand(append([]string{"rsync"}, args...))
	ev := log.Ctx(ctx).Info().Str("cmd", quoted)
	if e.Output == nil && e.LogPath != "" {
		ev = ev.Str("transfer_log", e.LogPath)
	}
	ev.Msg("starting rsync")
	fmt.Fprintf(out, "=== %s %s ===\n", time.Now().UTC().Format(time.RFC3339), quoted)

	cmd := exec.CommandContext(ctx, "rsync", args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return errors.Wrap(cmd.Run(), "rsync")
}

func (e *RsyncEngine) output() (io.Writer, func()) {
	if e.Output != nil {
		return e.Output, func() {}
	}
	if e.LogPath == "" {
		return os.Stdout, func() {}
	}
	w := logging.NewTransferWriter(e.LogPath)
	return w, func() { _ = w.Close() }
}
