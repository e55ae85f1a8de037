// Package paths resolves where durable stores and CLI configuration live.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "datastack"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DATASTACK_CONFIG_DIR"
	EnvDataDir   = "DATASTACK_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// DocumentsDir returns the per-user documents directory for app.
//
// Linux:   $XDG_DATA_HOME/<app> (fallback ~/.local/share/<app>)
// macOS:   ~/Library/Application Support/<app>
// Windows: %APPDATA%/<app>
func DocumentsDir(app string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, app), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", app), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, app), nil
	}
}

// CacheDir returns the per-user cache directory for app. Restricted
// platforms keep stores here instead of the documents directory.
func CacheDir(app string) (string, error) {
	dir, err := platformDir.userCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, app), nil
}

// ConfigDir returns the per-user configuration directory for app.
func ConfigDir(app string) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, app), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", app), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, app), nil
}

// ResolveStoreDir returns the directory durable stores live in, following
// the precedence chain: dir > DATASTACK_DATA_DIR env > platform default.
// The platform default is the cache directory when restricted is set and
// the documents directory otherwise.
func ResolveStoreDir(dir string, restricted bool) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	if restricted {
		return CacheDir(AppName)
	}
	return DocumentsDir(AppName)
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > DATASTACK_CONFIG_DIR env > ConfigDir(AppName).
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return ConfigDir(AppName)
}
