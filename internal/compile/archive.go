package compile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractZip unpacks an in-memory zip archive into dir. Entry paths are
// confined to dir; an entry that climbs out of it rejects the whole archive.
func extractZip(data []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	for _, entry := range reader.File {
		if err := extractEntry(entry, dir); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(entry *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(entry.Name))
	if escapesDir(dir, target) {
		return fmt.Errorf("%w: entry %q escapes extraction root", ErrInvalidArchive, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", entry.Name, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", entry.Name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", entry.Name, err)
	}

	return nil
}

// escapesDir reports whether path falls outside dir after normalization.
func escapesDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
