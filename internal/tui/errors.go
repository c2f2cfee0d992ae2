package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrUnsupportedField is returned for a field kind the renderer cannot prompt.
	ErrUnsupportedField = errors.New("tui: unsupported field")
)
