// Package compile turns zipped LaTeX projects into PDF documents by driving
// an external TeX toolchain in a throwaway working directory.
package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/luisedmundo354/latex-render-api/internal/observability"
)

// Drivers reported in Result.Driver.
const (
	driverLatexmk  = "latexmk"
	driverFallback = "fallback"
)

// Compiler orchestrates the compile pipeline: unpack, resolve the root
// document, run the toolchain, collect the artifact.
type Compiler struct {
	logger *observability.Logger
	cfg    Config
}

// Config holds compile pipeline settings. Zero values fall back to the
// production defaults.
type Config struct {
	DriverTimeout   time.Duration
	PassTimeout     time.Duration
	BibTimeout      time.Duration
	LogTailBytes    int
	MaxArchiveBytes int64
}

// Request represents one compile job.
type Request struct {
	Archive []byte
}

// Result represents a successful compile.
type Result struct {
	PDF       []byte
	RootPath  string // root document, relative to the archive root
	PageCount int
	Driver    string
	Duration  time.Duration
}

// New creates a Compiler.
func New(logger *observability.Logger, cfg Config) *Compiler {
	if cfg.DriverTimeout <= 0 {
		cfg.DriverTimeout = 300 * time.Second
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 90 * time.Second
	}
	if cfg.BibTimeout <= 0 {
		cfg.BibTimeout = 60 * time.Second
	}
	if cfg.LogTailBytes <= 0 {
		cfg.LogTailBytes = 8000
	}
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = 64 << 20
	}

	return &Compiler{logger: logger, cfg: cfg}
}

// Compile builds req.Archive into a PDF. The working directory is released
// on every exit path; nothing persists between jobs.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if int64(len(req.Archive)) > c.cfg.MaxArchiveBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrArchiveTooLarge, len(req.Archive))
	}

	tmp, err := os.MkdirTemp("", "latex-render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	workdir := filepath.Join(tmp, "proj")
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}

	// Step 1: Unpack the archive
	if err := extractZip(req.Archive, workdir); err != nil {
		return nil, err
	}

	// Step 2: Resolve the root document
	rootPath, err := resolveRoot(workdir)
	if err != nil {
		return nil, err
	}
	rootRel, err := filepath.Rel(workdir, rootPath)
	if err != nil {
		rootRel = filepath.Base(rootPath)
	}

	log := c.logger.With().Str("root", rootRel).Logger()
	log.Info().
		Int("archive_bytes", len(req.Archive)).
		Msg("Starting compile")

	// Step 3: Run the toolchain from the root document's directory
	texDir := filepath.Dir(rootPath)
	rootName := filepath.Base(rootPath)

	var toolLog strings.Builder
	driver, err := c.runToolchain(ctx, texDir, rootName, &toolLog)
	if err != nil {
		return nil, err
	}

	// Step 4: Collect the artifact; its presence is the only success signal
	stem := strings.TrimSuffix(rootName, filepath.Ext(rootName))
	pdfPath := filepath.Join(texDir, stem+".pdf")

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Warn().
			Str("driver", driver).
			Msg("Toolchain produced no PDF")
		return nil, &ToolchainError{LogTail: tailString(toolLog.String(), c.cfg.LogTailBytes)}
	}

	result := &Result{
		PDF:       pdf,
		RootPath:  rootRel,
		PageCount: c.countPages(pdfPath),
		Driver:    driver,
		Duration:  time.Since(start),
	}

	log.Info().
		Str("driver", driver).
		Int("pdf_bytes", len(pdf)).
		Int("pages", result.PageCount).
		Dur("duration", result.Duration).
		Msg("Compile succeeded")

	return result, nil
}

// countPages inspects the artifact. A PDF the toolchain accepted but pdfcpu
// cannot parse still ships; the count is advisory.
func (c *Compiler) countPages(pdfPath string) int {
	pages, err := api.PageCountFile(pdfPath)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to count PDF pages")
		return 0
	}
	return pages
}
