package backup

import (
	"crypto/sha256"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrVerifyMismatch is returned when the mirrored tree differs from the source.
var ErrVerifyMismatch = errors.New("destination does not match source")

// VerifyTrees compares two directory trees: every entry of src must exist in
// dst with the same content, and dst must carry nothing extra. File contents
// are compared through SHA-256.
func VerifyTrees(src, dst string) error {
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil || rel == "." {
			return err
		}
		return compareEntry(p, filepath.Join(dst, rel), rel, d)
	})
	if err != nil {
		return err
	}

	// Mirror semantics: anything extra on the destination is a mismatch too.
	return filepath.WalkDir(dst, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dst, p)
		if err != nil || rel == "." {
			return err
		}
		if _, serr := os.Lstat(filepath.Join(src, rel)); serr != nil {
			if os.IsNotExist(serr) {
				return errors.Wrapf(ErrVerifyMismatch, "extraneous %s", rel)
			}
			return serr
		}
		return nil
	})
}

func compareEntry(srcPath, dstPath, rel string, d fs.DirEntry) error {
	dstInfo, err := os.Lstat(dstPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrVerifyMismatch, "missing %s", rel)
		}
		return err
	}

	switch {
	case d.IsDir():
		if !dstInfo.IsDir() {
			return errors.Wrapf(ErrVerifyMismatch, "%s is not a directory on the destination", rel)
		}
	case d.Type()&fs.ModeSymlink != 0:
		srcTarget, err := os.Readlink(srcPath)
		if err != nil {
			return err
		}
		dstTarget, err := os.Readlink(dstPath)
		if err != nil {
			return errors.Wrapf(ErrVerifyMismatch, "%s is not a symlink on the destination", rel)
		}
		if srcTarget != dstTarget {
			return errors.Wrapf(ErrVerifyMismatch, "symlink %s points to %q, expected %q", rel, dstTarget, srcTarget)
		}
	default:
		srcInfo, err := d.Info()
		if err != nil {
			return err
		}
		if dstInfo.Size() != srcInfo.Size() {
			return errors.Wrapf(ErrVerifyMismatch, "%s: size %d, expected %d", rel, dstInfo.Size(), srcInfo.Size())
		}
		same, err := sameContent(srcPath, dstPath)
		if err != nil {
			return err
		}
		if !same {
			return errors.Wrapf(ErrVerifyMismatch, "%s: content differs", rel)
		}
	}
	return nil
}

func sameContent(a, b string) (bool, error) {
	ha, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func hashFile(path string) (sum [sha256.Size]byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return sum, errors.Wrapf(err, "hashing %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, errors.Wrapf(err, "hashing %s", path)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
