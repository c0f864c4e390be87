package model

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for outcomes the caller branches on. Cancelled is a
// distinguished outcome, not a failure: playlist accounting counts it as
// skipped, and it is never reported as an error to the user.
var (
	ErrAlreadyActive    = errors.New("another download is already active")
	ErrCancelled        = errors.New("cancelled")
	ErrSessionExpired   = errors.New("session expired")
	ErrArtifactNotFound = errors.New("downloaded file not found")
)

// OversizeError rejects an artifact that exceeds the configured upload limit.
// The check runs after production because the encoded size cannot be known
// beforehand.
type OversizeError struct {
	Size  int64
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("file too large: %s (limit %s)",
		humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

// IsOversize reports whether err is an OversizeError.
func IsOversize(err error) bool {
	var oe *OversizeError
	return errors.As(err, &oe)
}
