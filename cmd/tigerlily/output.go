package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/dataset"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/operator"
	"github.com/tigerlily/tigerlily/internal/table"
	"github.com/tigerlily/tigerlily/internal/tigergraph"
)

// Progress display settings
const (
	progressBarWidth       = 30
	progressLineClearWidth = 60
)

// outputJSON writes a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps a library error onto the CLI exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, embedding.ErrNotFitted):
		return ExitNotFitted
	case table.IsSchemaError(err),
		errors.Is(err, nmf.ErrDimension),
		errors.Is(err, nmf.ErrNegativeInput),
		errors.Is(err, operator.ErrShape),
		errors.Is(err, embedding.ErrEmptyTarget):
		return ExitDataError
	case errors.Is(err, config.ErrNoWorkspace),
		errors.Is(err, config.ErrTigerGraphNotConfigured),
		errors.Is(err, nmf.ErrInvalidOption):
		return ExitConfigError
	case tigergraph.IsRemote(err),
		errors.Is(err, dataset.ErrNotFound),
		errors.Is(err, dataset.ErrNetwork),
		errors.Is(err, dataset.ErrTooLarge):
		return ExitRemoteError
	}
	return ExitError
}

// exitWithErr exits with the code matching err.
func exitWithErr(err error, format string, args ...interface{}) {
	exitWithError(exitCodeFor(err), "%s: %v", fmt.Sprintf(format, args...), err)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// buildProgressBar creates a progress bar string of the given width.
// Returns a string like "[=====>    ]" showing progress.
func buildProgressBar(current, total, width int) string {
	if total == 0 {
		return strings.Repeat(" ", width)
	}
	filled := (width * current) / total
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1)
}

// printProgress displays a progress bar on stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := buildProgressBar(current, total, progressBarWidth)
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar, current, total, pct)
}

// clearProgress erases the progress line.
func clearProgress() {
	fmt.Fprintf(os.Stderr, "\r%*s\r", progressLineClearWidth, "")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
