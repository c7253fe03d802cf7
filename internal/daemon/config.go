// Package daemon provides the admin control socket for a running
// HippoMind server. The serve process listens on a Unix socket so CLI
// commands (sessions, status) can inspect live state without their own
// copy of the engine.
package daemon

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds control socket settings.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.hippomind/hippomind.sock
	SocketPath string

	// PIDPath is the file path for storing the server's process ID.
	// Default: ~/.hippomind/hippomind.pid
	PIDPath string

	// Timeout is the maximum duration for client-server communication.
	// Default: 10s
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}
	dir := filepath.Join(home, ".hippomind")

	return Config{
		SocketPath: filepath.Join(dir, "hippomind.sock"),
		PIDPath:    filepath.Join(dir, "hippomind.pid"),
		Timeout:    10 * time.Second,
	}
}
