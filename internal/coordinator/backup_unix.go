//go:build linux || darwin

package coordinator

import "golang.org/x/sys/unix"

// BackupXattr marks a file as not worth backing up (freedesktop convention).
const BackupXattr = "user.xdg.robots.backup"

func excludeFromBackup(path string) error {
	return unix.Setxattr(path, BackupXattr, []byte("false"), 0)
}
