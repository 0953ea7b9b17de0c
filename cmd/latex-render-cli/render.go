package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// newRenderCmd creates the render subcommand.
func newRenderCmd() *cobra.Command {
	var (
		output string
		keep   bool
	)

	cmd := &cobra.Command{
		Use:   "render <project-dir|project.zip>",
		Short: "Compile a LaTeX project through the render API",
		Long: `Render zips a project directory (or takes a prebuilt .zip), uploads it
via a presigned URL, asks the API to compile it, and writes the PDF locally.

The server picks the root document on its own: a "% !TEX root" magic comment
wins, then a top-level main.tex, then the most document-like .tex file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			archive, stem, err := loadProject(args[0])
			if err != nil {
				return err
			}

			client := NewClient(server, apiKey, timeout)

			sp := newSpinner("Requesting upload slot")
			sp.Start()
			pre, err := client.Presign(ctx)
			sp.Stop()
			if err != nil {
				return fmt.Errorf("presign: %w", err)
			}

			bar := newUploadBar(int64(len(archive)), "Uploading")
			body := io.TeeReader(bytes.NewReader(archive), bar)
			if err := client.Upload(ctx, pre.PutURL, body, int64(len(archive))); err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			_ = bar.Finish()

			sp = newSpinner("Compiling (this can take a few minutes)")
			sp.Start()
			pdf, pages, err := client.Compile(ctx, pre.Key, !keep)
			sp.Stop()
			if err != nil {
				return fmt.Errorf("compile: %w", err)
			}

			out := output
			if out == "" {
				out = stem + ".pdf"
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}

			if pages > 0 {
				successf("Wrote %s (%d pages, %d bytes)", out, pages, len(pdf))
			} else {
				successf("Wrote %s (%d bytes)", out, len(pdf))
			}
			if keep {
				infof("Archive kept in storage as %s", pre.Key)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF path (default: <project>.pdf)")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the uploaded archive in storage")

	return cmd
}

// loadProject returns the archive bytes for input, either a project
// directory or a prebuilt .zip, plus the stem used to name the output PDF.
func loadProject(input string) ([]byte, string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, "", err
	}

	if info.IsDir() {
		archive, err := zipDirectory(input)
		if err != nil {
			return nil, "", fmt.Errorf("zip %s: %w", input, err)
		}
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, "", err
		}
		return archive, filepath.Base(abs), nil
	}

	if !strings.EqualFold(filepath.Ext(input), ".zip") {
		return nil, "", fmt.Errorf("%s is neither a directory nor a .zip archive", input)
	}

	archive, err := os.ReadFile(input)
	if err != nil {
		return nil, "", err
	}
	return archive, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)), nil
}

// zipDirectory packs dir into an in-memory zip with forward-slash entry
// names rooted at dir. VCS metadata is skipped.
func zipDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		f, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
