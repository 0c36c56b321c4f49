package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/logging"
)

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "flashsync.lock")

	lock, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireLockHeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashsync.lock")

	lock, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)
	defer lock.Release()

	// The lock holds our own (very alive) pid.
	_, err = AcquireLock(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestAcquireLockReclaimsDeadOwner(t *testing.T) {
	logging.ConfigureTestLogging(t)
	path := filepath.Join(t.TempDir(), "flashsync.lock")
	// Linux pids top out well below this, so nothing can own it.
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n", 1<<30)), 0o644))

	lock, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))
}

func TestAcquireLockReclaimsGarbageContent(t *testing.T) {
	logging.ConfigureTestLogging(t)
	path := filepath.Join(t.TempDir(), "flashsync.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	lock, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)
	defer lock.Release()
}

func TestAcquireLockAgainAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashsync.lock")

	lock, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	again, err := AcquireLock(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestPidAlive(t *testing.T) {
	assert.True(t, pidAlive(os.Getpid()))
	assert.False(t, pidAlive(0))
	assert.False(t, pidAlive(-1))
	assert.False(t, pidAlive(1<<30))
}
