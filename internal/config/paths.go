package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the platform-conventional configuration directory for the named application.
//   - darwin:  ~/Library/Application Support/<name>
//   - windows: %APPDATA%/<name>
//   - others:  $XDG_CONFIG_HOME/<name>, falling back to ~/.config/<name>
func Dir(name string) string {
	return dirFor(runtime.GOOS, name)
}

func dirFor(goos, name string) string {
	home, _ := os.UserHomeDir()
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", name)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, name)
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, name)
	}
}
