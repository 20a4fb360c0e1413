// Package paths resolves the slate configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "slate"

// DefaultDataDirName is the working-directory-relative data directory used
// when nothing else is configured.
const DefaultDataDirName = ".slate"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SLATE_CONFIG_DIR"
	EnvDataDir   = "SLATE_DATA_DIR"
)

// platformDir holds platform lookups that tests replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns the per-user directory for slate. On Linux it honours the
// XDG variable xdgEnv and falls back to ~/<linuxHome>. Elsewhere it uses the
// user configuration directory.
func userDir(xdgEnv string, linuxHome ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, linuxHome...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/slate or ~/.config/slate on Linux, the user
// configuration directory elsewhere.
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory: $XDG_DATA_HOME/slate
// or ~/.local/share/slate on Linux, the user configuration directory
// elsewhere.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the first non-empty value made absolute.
func firstAbs(values ...string) (string, bool, error) {
	for _, v := range values {
		if v != "" {
			abs, err := filepath.Abs(v)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir picks the configuration directory:
// flag > SLATE_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory:
// flag > config file value > SLATE_DATA_DIR > ./.slate.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
