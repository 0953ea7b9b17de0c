package compile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArchive indicates the upload is not a readable zip archive.
	ErrInvalidArchive = errors.New("invalid zip archive")
	// ErrArchiveTooLarge indicates the upload exceeds the configured size cap.
	ErrArchiveTooLarge = errors.New("archive too large")
	// ErrNoTexFiles indicates the archive contains no .tex document.
	ErrNoTexFiles = errors.New("no .tex file found in archive")
)

// ToolchainError reports a toolchain run that finished without producing a
// PDF. LogTail carries the end of the combined tool output so callers can
// surface the actual TeX errors.
type ToolchainError struct {
	LogTail string
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("pdf not produced, log tail:\n%s", e.LogTail)
}
