package backup

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
)

// ErrNoSourceDir is returned when nothing under the search root matches the
// configured folder-name pattern.
var ErrNoSourceDir = errors.New("no directory matches the source pattern")

// FindSourceDir locates the backup folder: the directory under root, at most
// maxDepth levels down, whose base name matches the glob pattern. When
// several directories match, the most recently modified one wins, so a stale
// sibling left behind by the provisioner cannot shadow the live folder.
func FindSourceDir(root, pattern string, maxDepth int) (string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return "", errors.Wrapf(err, "invalid source pattern %q", pattern)
	}

	var (
		best     string
		bestTime time.Time
		found    bool
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}
		if depth > maxDepth {
			return filepath.SkipDir
		}
		if ok, _ := path.Match(pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !found || info.ModTime().After(bestTime) {
			best, bestTime, found = p, info.ModTime(), true
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "searching %s", root)
	}
	if !found {
		return "", errors.Wrapf(ErrNoSourceDir, "pattern %q under %s", pattern, root)
	}
	return best, nil
}

// TreeSize walks the tree and reports how many non-directory entries it holds
// and how many bytes its regular files add up to.
func TreeSize(dir string) (int, datasize.ByteSize, error) {
	var files int
	var total uint64
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files++
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += uint64(info.Size())
		}
		return nil
	})
	if err != nil {
		return 0, 0, errors.Wrapf(err, "sizing %s", dir)
	}
	return files, datasize.ByteSize(total), nil
}
