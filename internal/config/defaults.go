package config

import (
	"os"
	"path/filepath"

	"kaizen/internal/watcher"
)

// DefaultCategories returns the built-in extension mapping.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Images", Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".svg", ".gif"}},
		{Name: "Documents", Extensions: []string{".pdf", ".docx", ".txt", ".xlsx", ".csv", ".pptx", ".md"}},
		{Name: "Archives", Extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz", ".iso"}},
		{Name: "Code", Extensions: []string{".py", ".ipynb", ".js", ".cpp", ".html", ".css", ".json", ".sql"}},
		{Name: "Media", Extensions: []string{".mp3", ".wav", ".mp4", ".mkv", ".mov", ".avi"}},
		{Name: "Executables", Extensions: []string{".exe", ".msi", ".appimage", ".deb", ".rpm"}},
	}
}

// Default returns a Configuration populated with defaults.
func Default() *Configuration {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Configuration{
		WatchPaths:     []string{filepath.Join(home, "Downloads")},
		OutputDir:      filepath.Join(home, "Desktop"),
		DataDir:        DefaultDataDir(),
		Categories:     DefaultCategories(),
		IgnorePatterns: watcher.DefaultIgnorePatterns(),
		Focus: Focus{
			WorkMinutes:  25,
			BreakMinutes: 5,
			URLs:         []string{},
			Tool:         "code",
		},
		Arrival: Arrival{
			SettleMs:       1000,
			RetryCount:     5,
			RetryBackoffMs: 500,
			Workers:        4,
			QueueSize:      256,
		},
		Notify: Notify{
			BatchWindowMs: 1500,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "kaizen", "config.toml")
}

// DefaultDataDir returns the directory holding the database and lock file.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "kaizen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kaizen")
	}
	return filepath.Join(home, ".local", "share", "kaizen")
}
