//go:build !linux && !darwin

package coordinator

// BackupXattr marks a file as not worth backing up (freedesktop convention).
const BackupXattr = "user.xdg.robots.backup"

func excludeFromBackup(string) error {
	return nil
}
