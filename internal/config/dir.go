// Package config resolves mbb's configuration directory and loads its YAML
// configuration files.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the configuration directory.
const AppName = "mbb"

// Dir returns the mbb configuration directory.
//
// Resolution:
//   - $MBB_CONFIG_HOME if set (explicit override)
//   - $XDG_CONFIG_HOME/mbb if set (respects XDG on any platform)
//   - %AppData%/mbb on Windows
//   - ~/.config/mbb on macOS and Linux
func Dir() string {
	if dir := os.Getenv("MBB_CONFIG_HOME"); dir != "" {
		return dir
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// GlobalFile returns the path of the user-wide config file, or "" when no
// configuration directory can be determined.
func GlobalFile() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
