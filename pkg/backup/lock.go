package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrLocked reports that another run holds the lock file.
var ErrLocked = errors.New("another run is in progress")

// Lock is an exclusive run lock backed by an O_EXCL-created file holding the
// owner's PID. A leftover lock whose process is gone gets reclaimed.
type Lock struct {
	path string
}

// AcquireLock takes the lock or fails fast with ErrLocked.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating lock directory")
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				os.Remove(path)
				return nil, errors.Wrap(werr, "writing lock file")
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "creating lock file")
		}

		pid, perr := lockOwner(path)
		if perr == nil && pidAlive(pid) {
			return nil, errors.Wrapf(ErrLocked, "pid %d holds %s", pid, path)
		}
		// The owner is gone or the file holds garbage. Reclaim once.
		log.Ctx(ctx).Warn().Str("lock", path).Msg("reclaiming stale lock file")
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			return nil, errors.Wrap(rerr, "removing stale lock file")
		}
	}
	return nil, errors.Wrapf(ErrLocked, "lock file %s keeps reappearing", path)
}

// Release drops the lock.
func (l *Lock) Release() error {
	return errors.Wrap(os.Remove(l.path), "removing lock file")
}

func lockOwner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrapf(err, "unreadable pid in %s", path)
	}
	return pid, nil
}

// pidAlive reports whether a process with the given pid exists. Signal 0
// probes for existence without delivering anything; EPERM still means the
// process is there.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
