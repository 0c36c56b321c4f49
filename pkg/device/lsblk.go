package device

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// lsblkColumns is the column list requested from lsblk. PKNAME ties a
// partition back to its disk so removability can be inherited.
const lsblkColumns = "NAME,TYPE,RM,LABEL,SIZE,MOUNTPOINT,PKNAME"

// Lsblk enumerates volumes by running lsblk(8) and parsing its raw output.
type Lsblk struct{}

// NewLsblk returns the Enumerator used outside of tests.
func NewLsblk() Lsblk {
	return Lsblk{}
}

func (Lsblk) Partitions(ctx context.Context) ([]Device, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "-brn", "-o", lsblkColumns).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, errors.Wrapf(err, "lsblk: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, errors.Wrap(err, "lsblk")
	}
	devices, err := parseLsblk(string(out))
	if err != nil {
		return nil, err
	}
	return removableVolumes(devices), nil
}

// parseLsblk decodes raw (-r) lsblk output. Each line carries exactly the
// requested columns separated by single spaces; empty values stay empty and
// embedded separators are \xHH-escaped, so lines must be split on the single
// space, never on runs of whitespace.
func parseLsblk(out string) ([]Device, error) {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, " ")
		if len(fields) < 7 {
			return nil, errors.Errorf("unexpected lsblk line %q", line)
		}
		var size uint64
		if fields[4] != "" {
			parsed, err := strconv.ParseUint(fields[4], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad size in lsblk line %q", line)
			}
			size = parsed
		}
		mountPoint := unescapeLsblk(fields[5])
		if mountPoint == "-" {
			mountPoint = ""
		}
		name := unescapeLsblk(fields[0])
		devices = append(devices, Device{
			Name:       name,
			Path:       ensureDevPrefix(name),
			Type:       fields[1],
			Removable:  fields[2] == "1",
			Label:      unescapeLsblk(fields[3]),
			Size:       datasize.ByteSize(size),
			MountPoint: mountPoint,
			Parent:     unescapeLsblk(fields[6]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading lsblk output")
	}
	return devices, nil
}

// removableVolumes keeps the rows that can hold a backup: partitions that are
// removable themselves or sit on a removable disk, plus removable disks whose
// filesystem lives directly on the disk (sticks without a partition table).
func removableVolumes(devices []Device) []Device {
	removableDisk := make(map[string]bool)
	for _, d := range devices {
		if d.Type == "disk" && d.Removable {
			removableDisk[d.Name] = true
		}
	}
	return lo.Filter(devices, func(d Device, _ int) bool {
		switch d.Type {
		case "part":
			return d.Removable || removableDisk[d.Parent]
		case "disk":
			return d.Removable && d.Label != ""
		default:
			return false
		}
	})
}

// unescapeLsblk reverses the \xHH escaping lsblk applies in raw mode.
func unescapeLsblk(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
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

// ensureDevPrefix turns a kernel name like "sdb1" into its /dev node path.
func ensureDevPrefix(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}
