package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestTrimToTail_KeepsNewestLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLines(t, path, 50)

	require.NoError(t, TrimToTail(path, 10))

	lines := readLines(t, path)
	require.Len(t, lines, 10)
	assert.Equal(t, "line 41", lines[0])
	assert.Equal(t, "line 50", lines[9])
}

func TestTrimToTail_NoopUnderCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLines(t, path, 5)

	require.NoError(t, TrimToTail(path, 10))

	assert.Len(t, readLines(t, path), 5)
}

func TestTrimToTail_ExactCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLines(t, path, 10)

	require.NoError(t, TrimToTail(path, 10))

	assert.Len(t, readLines(t, path), 10)
}

func TestTrimToTail_MissingFileIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.log")
	assert.NoError(t, TrimToTail(path, 10))
}

func TestTrimToTail_DisabledCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLines(t, path, 50)

	require.NoError(t, TrimToTail(path, 0))

	assert.Len(t, readLines(t, path), 50)
}

func TestTrimToTail_NoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd"), 0o644))

	require.NoError(t, TrimToTail(path, 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c\nd", string(data))
}

func TestLastLines(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		n       int
		want    string
		trimmed bool
	}{
		{"empty", "", 3, "", false},
		{"under", "a\nb\n", 3, "a\nb\n", false},
		{"exact", "a\nb\nc\n", 3, "a\nb\nc\n", false},
		{"over", "a\nb\nc\nd\n", 2, "c\nd\n", true},
		{"single", "a\nb\nc\n", 1, "c\n", true},
		{"no final newline", "a\nb\nc", 2, "b\nc", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, trimmed := lastLines([]byte(tc.in), tc.n)
			assert.Equal(t, tc.want, string(got))
			assert.Equal(t, tc.trimmed, trimmed)
		})
	}
}
