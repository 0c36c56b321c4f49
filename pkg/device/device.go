// Package device discovers removable volumes through lsblk, matches them by
// filesystem label, and attaches them with the system mount tools.
package device

import (
	"context"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNoMatchingDevice is returned when no removable volume carries a label
// containing one of the configured substrings.
var ErrNoMatchingDevice = errors.New("no removable volume matches the configured labels")

// Device is one entry of the block-device table, a disk or a partition.
type Device struct {
	Name       string // kernel name, e.g. "sdb1"
	Path       string // device node, e.g. "/dev/sdb1"
	Type       string // lsblk TYPE, "disk" or "part"
	Removable  bool
	Label      string // filesystem label, empty when unset
	Size       datasize.ByteSize
	MountPoint string // empty when not mounted
	Parent     string // kernel name of the parent disk, empty for whole disks
}

// Enumerator lists the removable volumes attached to the machine.
type Enumerator interface {
	Partitions(ctx context.Context) ([]Device, error)
}

// LabelMatches reports whether the device label contains any of the given
// substrings, ignoring case. Unlabeled devices never match.
func (d Device) LabelMatches(labels []string) bool {
	if d.Label == "" {
		return false
	}
	have := strings.ToLower(d.Label)
	for _, want := range labels {
		if want != "" && strings.Contains(have, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// Match returns the first device whose label matches. Devices keep their
// enumeration order, so when several volumes match the first one wins.
func Match(devices []Device, labels []string) (Device, bool) {
	return lo.Find(devices, func(d Device) bool { return d.LabelMatches(labels) })
}
