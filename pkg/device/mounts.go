package device

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const procMounts = "/proc/self/mounts"

// MountPointOf reports where the device node is mounted right now, straight
// from the kernel's mount table. lsblk snapshots can lag behind the kernel
// inside containers, the mount table cannot.
func MountPointOf(devPath string) (string, bool) {
	data, err := os.ReadFile(procMounts)
	if err != nil {
		return "", false
	}
	return mountPointIn(string(data), devPath)
}

// mountPointIn scans mount-table content for the first entry of the device.
func mountPointIn(mounts, devPath string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(mounts))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == devPath {
			return unescapeMountPath(fields[1]), true
		}
	}
	return "", false
}

// unescapeMountPath reverses the octal escaping (\040 and friends) the kernel
// applies to paths in the mount table.
func unescapeMountPath(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 4
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
