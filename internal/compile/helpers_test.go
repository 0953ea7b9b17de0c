package compile

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luisedmundo354/latex-render-api/internal/observability"
)

// newTestCompiler returns a Compiler that logs nowhere and uses short
// timeouts so toolchain tests stay fast.
func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	logger := observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "json",
		Output:      io.Discard,
		ServiceName: "test",
	})
	return New(logger, Config{
		DriverTimeout: 60 * time.Second,
		PassTimeout:   60 * time.Second,
		BibTimeout:    30 * time.Second,
	})
}

// writeTree creates the given files under dir, making parent directories as
// needed. Paths use forward slashes.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// makeZip builds an in-memory zip archive. Entry names are used verbatim so
// tests can produce hostile paths.
func makeZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// installStub writes an executable shell script named tool into dir. The
// running test must point PATH at dir for the stub to be picked up.
func installStub(t *testing.T, dir, tool, script string) {
	t.Helper()
	path := filepath.Join(dir, tool)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
}

// readCalls returns the recorded stub invocations, one per line.
func readCalls(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var calls []string
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) > 0 {
			calls = append(calls, string(line))
		}
	}
	return calls
}
