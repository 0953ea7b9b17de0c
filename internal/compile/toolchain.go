package compile

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// latexmkEngine is handed to latexmk as the -pdflatex value. Shell escape
// stays off in every pass: archive content is untrusted.
const latexmkEngine = "pdflatex -interaction=nonstopmode -halt-on-error -no-shell-escape -file-line-error %O %S"

var pdflatexArgs = []string{
	"-interaction=nonstopmode",
	"-halt-on-error",
	"-no-shell-escape",
	"-file-line-error",
}

// runToolchain compiles rootName inside dir, appending combined tool output
// to log. latexmk drives the full multi-pass build when installed; otherwise
// the passes run by hand. Returns the driver used.
func (c *Compiler) runToolchain(ctx context.Context, dir, rootName string, log *strings.Builder) (string, error) {
	if _, err := exec.LookPath("latexmk"); err == nil {
		err := c.runTool(ctx, dir, c.cfg.DriverTimeout, log,
			"latexmk", "-pdf", "-pdflatex="+latexmkEngine, rootName)
		return driverLatexmk, err
	}

	stem := strings.TrimSuffix(rootName, filepath.Ext(rootName))
	passArgs := append(append([]string(nil), pdflatexArgs...), rootName)

	if err := c.runTool(ctx, dir, c.cfg.PassTimeout, log, "pdflatex", passArgs...); err != nil {
		return driverFallback, err
	}

	// The first pass reveals the bibliography tool: biblatex writes a .bcf
	// control file for biber, while classic BibTeX leaves only the .aux.
	if isRegularFile(filepath.Join(dir, stem+".bcf")) {
		if err := c.runTool(ctx, dir, c.cfg.BibTimeout, log, "biber", stem); err != nil {
			return driverFallback, err
		}
	} else if isRegularFile(filepath.Join(dir, stem+".aux")) {
		if err := c.runTool(ctx, dir, c.cfg.BibTimeout, log, "bibtex", stem); err != nil {
			return driverFallback, err
		}
	}

	// Two more passes settle cross-references and citations.
	for i := 0; i < 2; i++ {
		if err := c.runTool(ctx, dir, c.cfg.PassTimeout, log, "pdflatex", passArgs...); err != nil {
			return driverFallback, err
		}
	}

	return driverFallback, nil
}

// runTool executes a single toolchain command in dir with its own timeout.
// A non-zero exit is not an error here: TeX tools fail loudly and partially
// succeed, so the produced artifact is the only arbiter. Timeouts and
// unstartable commands are fatal.
func (c *Compiler) runTool(ctx context.Context, dir string, timeout time.Duration, log *strings.Builder, name string, args ...string) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir

	c.logger.Debug().
		Str("tool", name).
		Strs("args", args).
		Dur("timeout", timeout).
		Msg("Running toolchain command")

	output, err := cmd.CombinedOutput()
	log.Write(output)

	if err == nil {
		return nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s: %w", name, timeout, context.DeadlineExceeded)
	}
	if runCtx.Err() != nil {
		return fmt.Errorf("%s interrupted: %w", name, runCtx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		c.logger.Debug().
			Str("tool", name).
			Int("exit_code", exitErr.ExitCode()).
			Msg("Toolchain command exited non-zero")
		return nil
	}

	return fmt.Errorf("run %s: %w", name, err)
}

// tailString returns at most n trailing bytes of s.
func tailString(s string, n int) string {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
