// Package ui implements the interactive narrowing loop for `hippomind
// find`: a bubbletea program on a TTY, a line-oriented fallback
// otherwise.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ismail180205/HippoMind/internal/session"
)

// Driver is the slice of the session registry the UI consumes.
type Driver interface {
	Create(ctx context.Context, query string) (*session.Snapshot, error)
	Pick(ctx context.Context, id string, clusterID int) (*session.Snapshot, error)
	AskForHelp(ctx context.Context, id string) (*session.Snapshot, error)
	AnswerFollowup(ctx context.Context, id, answer string) (*session.Snapshot, error)
	Backtrack(ctx context.Context, id string, nodeID int) (*session.Snapshot, error)
	Delete(id string)
}

// Config configures the narrowing loop.
type Config struct {
	Input   io.Reader
	Output  io.Writer
	NoColor bool
}

// IsTTY reports whether the writer is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor honors the NO_COLOR convention.
func DetectNoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

// Run starts the narrowing loop for the query, choosing the TUI on a
// terminal and the plain loop everywhere else.
func Run(ctx context.Context, driver Driver, query string, cfg Config) error {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if IsTTY(cfg.Output) {
		return RunTUI(ctx, driver, query, cfg)
	}
	return RunPlain(ctx, driver, query, cfg)
}
