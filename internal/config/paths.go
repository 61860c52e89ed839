package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Application directory name used across all platforms.
const appName = "hypha-apps"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config
// files. On Linux, respects XDG_CONFIG_HOME (defaults to
// ~/.config/hypha-apps). On macOS, uses ~/Library/Application Support per
// Apple guidelines. Other platforms fall back to ~/.config/hypha-apps.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the full path to the default config file, used
// when neither HYPHA_CONFIG nor --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
