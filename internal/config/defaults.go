package config

import (
	"os"
	"path/filepath"
	"runtime"
)

func currentGOOS() string { return runtime.GOOS }

func macOSSupportDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Application Support", "gse")
}

func windowsAppDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "gse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Roaming", "gse")
}

// xdgDir resolves an XDG base-directory env var, falling back to
// ~/<fallback>/gse when unset -- the same pattern for config/cache/data.
func xdgDir(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "gse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback, "gse")
}
