package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey indicates an object key that does not match the upload
// namespace. Keys are rejected before any storage round trip.
var ErrInvalidKey = errors.New("invalid object key")

const (
	uploadPrefix = "uploads/"
	uploadSuffix = ".zip"
)

// NewUploadKey allocates a fresh date-partitioned upload key of the form
// "uploads/2025-12-30/<32 hex chars>.zip". The random part is hex so the key
// stays URL- and signature-safe.
func NewUploadKey(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%s%s/%s%s",
		uploadPrefix,
		now.UTC().Format("2006-01-02"),
		hex.EncodeToString(id[:]),
		uploadSuffix,
	)
}

// ValidateUploadKey checks that a client-supplied key lives in the upload
// namespace. Anything else is rejected up front so the API can never be
// steered at arbitrary bucket content.
func ValidateUploadKey(key string) error {
	if !strings.HasPrefix(key, uploadPrefix) || !strings.HasSuffix(key, uploadSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
