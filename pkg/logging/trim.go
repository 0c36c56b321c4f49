package logging

import (
	"bytes"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// TrimToTail rewrites the file at path so that it holds at most maxLines
// lines, keeping the newest ones. A missing file and a non-positive cap are
// both no-ops. The file is rewritten in place (same inode) so writers that
// open it afterwards in append mode see the trimmed content.
func TrimToTail(path string, maxLines int) error {
	if maxLines <= 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading log for rotation")
	}

	tail, trimmed := lastLines(data, maxLines)
	if !trimmed {
		return nil
	}

	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, tail, mode); err != nil {
		return errors.Wrap(err, "rewriting trimmed log")
	}
	return nil
}

// lastLines returns the suffix of data holding at most n lines, and whether
// anything was cut. A trailing newline does not count as an extra line.
func lastLines(data []byte, n int) ([]byte, bool) {
	if len(data) == 0 {
		return data, false
	}

	end := len(data)
	if data[end-1] == '\n' {
		end--
	}

	// Walk backwards over newlines until n lines are spanned.
	lines := 0
	i := end
	for i > 0 {
		j := bytes.LastIndexByte(data[:i], '\n')
		lines++
		if lines == n {
			if j < 0 {
				return data, false
			}
			return data[j+1:], true
		}
		if j < 0 {
			return data, false
		}
		i = j
	}
	return data, false
}
