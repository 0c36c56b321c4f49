package device

import (
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/ricochet2200/go-disk-usage/du"
)

// FreeSpace returns the free bytes on the filesystem holding path.
func FreeSpace(path string) (datasize.ByteSize, error) {
	usage := du.NewDiskUsage(path)
	if usage == nil {
		return 0, errors.Errorf("cannot read disk usage for %s", path)
	}
	return datasize.ByteSize(usage.Free()), nil
}
