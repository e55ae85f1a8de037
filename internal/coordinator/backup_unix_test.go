//go:build linux

package coordinator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDurableFileExcludedFromBackup(t *testing.T) {
	c := open(t, durableConfig(t))

	buf := make([]byte, 16)
	n, err := unix.Getxattr(c.Location(), BackupXattr, buf)
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) {
		t.Skip("filesystem does not support user xattrs")
	}
	require.NoError(t, err)
	assert.Equal(t, "false", string(buf[:n]))
}
