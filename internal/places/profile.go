package places

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

// DefaultProfilesRoot returns the directory Firefox keeps its profiles in
// for the current platform.
func DefaultProfilesRoot() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox", "Profiles")
		}
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

// FindDatabase locates places.sqlite under root.
//
// Profiles named *.default-release* are preferred (both .default-release and
// .default-release-1 occur side by side); when none exist every entry under
// root is considered. The first candidate in name order that contains
// places.sqlite wins.
func FindDatabase(root string, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[places] ", log.LstdFlags)
	}

	profiles, err := filepath.Glob(filepath.Join(root, "*.default-release*"))
	if err != nil {
		return "", fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(profiles) == 0 {
		profiles, err = filepath.Glob(filepath.Join(root, "*"))
		if err != nil {
			return "", fmt.Errorf("failed to list profiles: %w", err)
		}
		names := make([]string, 0, len(profiles))
		for _, p := range profiles {
			names = append(names, filepath.Base(p))
		}
		logger.Printf("No default-release profile in %s, available profiles: %v", root, names)
	}
	sort.Strings(profiles)

	var valid []string
	for _, p := range profiles {
		if info, err := os.Stat(filepath.Join(p, DatabaseName)); err == nil && !info.IsDir() {
			valid = append(valid, p)
		}
	}

	if len(valid) == 0 {
		return "", fmt.Errorf("%w: no Firefox profile with %s under %s", bookmark.ErrSourceUnavailable, DatabaseName, root)
	}
	if len(valid) > 1 {
		logger.Printf("Multiple profiles found with %s. Using: %s", DatabaseName, valid[0])
	}

	return filepath.Join(valid[0], DatabaseName), nil
}
