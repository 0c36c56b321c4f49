package backup

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
)

// CopyEngine mirrors the tree in-process, for hosts without rsync.
type CopyEngine struct{}

func (CopyEngine) Name() string { return config.EngineCopy }

func (CopyEngine) Sync(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := cp.Options{
		OnSymlink:     func(string) cp.SymlinkAction { return cp.Shallow },
		PreserveTimes: true,
	}
	if err := cp.Copy(src, dst, opts); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return deleteExtraneous(ctx, src, dst)
}

// deleteExtraneous removes entries under dst that have no counterpart under
// src, completing the mirror the way rsync --delete does.
func deleteExtraneous(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(dst, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		rel, err := filepath.Rel(dst, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if _, err := os.Lstat(filepath.Join(src, rel)); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrapf(err, "deleting extraneous %s", p)
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
}
