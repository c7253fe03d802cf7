package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the directory for HippoMind log files,
// ~/.hippomind/logs. Falls back to the current directory if the home
// directory cannot be determined.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".hippomind", "logs")
	}
	return filepath.Join(home, ".hippomind", "logs")
}

// DefaultLogPath returns the default path for the main log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "hippomind.log")
}

// EnsureLogDir creates the log directory if it does not exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
