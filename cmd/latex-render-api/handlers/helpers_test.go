package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luisedmundo354/latex-render-api/internal/compile"
	"github.com/luisedmundo354/latex-render-api/internal/observability"
	"github.com/luisedmundo354/latex-render-api/internal/storage"
)

const testBucket = "renders"

func newTestLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "json",
		Output:      io.Discard,
		ServiceName: "test",
	})
}

func newTestCompiler(t *testing.T) *compile.Compiler {
	t.Helper()
	return compile.New(newTestLogger(), compile.Config{
		DriverTimeout: 60 * time.Second,
		PassTimeout:   60 * time.Second,
		BibTimeout:    30 * time.Second,
	})
}

// fakeStore is an in-memory S3 endpoint. It records every request it sees
// so tests can assert which storage calls a handler made, and in what order.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	requests []string
}

// newFakeStore starts the fake endpoint and returns a storage client bound
// to it with path-style addressing, so object keys appear verbatim in paths.
func newFakeStore(t *testing.T) (*fakeStore, *storage.Client) {
	t.Helper()
	f := &fakeStore{objects: make(map[string][]byte)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		body, ok := f.objects[strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")]
		f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
				return
			}
			w.Write(body)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := storage.New(context.Background(), newTestLogger(), storage.Config{
		Endpoint:     srv.URL,
		Region:       "nyc3",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Bucket:       testBucket,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return f, client
}

func (f *fakeStore) put(key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
}

func (f *fakeStore) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// stubToolchain puts a latexmk stand-in on PATH. The script runs with the
// root document's directory as its working directory and only shell
// builtins available.
func stubToolchain(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "latexmk")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	t.Setenv("PATH", dir)
}

// makeZip builds an in-memory zip archive.
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

const testDocument = `\documentclass{article}
\begin{document}
Hello.
\end{document}
`
