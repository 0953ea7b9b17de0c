package compile

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEnv points PATH at a directory of fake toolchain binaries and returns
// that directory plus the file the stubs record their invocations in.
func stubEnv(t *testing.T) (stubs, calls string) {
	t.Helper()
	stubs = t.TempDir()
	calls = filepath.Join(stubs, "calls.log")
	t.Setenv("PATH", stubs)
	t.Setenv("CALLS", calls)
	return stubs, calls
}

func TestRunToolchain_PrefersLatexmk(t *testing.T) {
	stubs, calls := stubEnv(t)
	installStub(t, stubs, "latexmk", `echo "latexmk $*" >> "$CALLS"
stem="${3%.tex}"
echo "%PDF-1.5 stub" > "$stem.pdf"`)
	installStub(t, stubs, "pdflatex", `echo "pdflatex $*" >> "$CALLS"`)

	work := t.TempDir()
	writeTree(t, work, map[string]string{"main.tex": `\documentclass{article}`})

	c := newTestCompiler(t)
	var log strings.Builder
	driver, err := c.runToolchain(context.Background(), work, "main.tex", &log)

	require.NoError(t, err)
	assert.Equal(t, "latexmk", driver)
	assert.FileExists(t, filepath.Join(work, "main.pdf"))

	recorded := readCalls(t, calls)
	require.Len(t, recorded, 1)
	assert.Contains(t, recorded[0], "latexmk -pdf")
	assert.Contains(t, recorded[0], "-no-shell-escape")
	assert.Contains(t, recorded[0], "main.tex")
}

func TestRunToolchain_FallbackRunsBibtexWhenAuxPresent(t *testing.T) {
	stubs, calls := stubEnv(t)
	installStub(t, stubs, "pdflatex", `echo "pdflatex $*" >> "$CALLS"
stem="${5%.tex}"
echo "aux" > "$stem.aux"
echo "%PDF-1.5 stub" > "$stem.pdf"`)
	installStub(t, stubs, "bibtex", `echo "bibtex $*" >> "$CALLS"`)
	installStub(t, stubs, "biber", `echo "biber $*" >> "$CALLS"`)

	work := t.TempDir()
	writeTree(t, work, map[string]string{"main.tex": `\documentclass{article}`})

	c := newTestCompiler(t)
	var log strings.Builder
	driver, err := c.runToolchain(context.Background(), work, "main.tex", &log)

	require.NoError(t, err)
	assert.Equal(t, "fallback", driver)

	recorded := readCalls(t, calls)
	require.Len(t, recorded, 4)
	assert.Contains(t, recorded[0], "pdflatex")
	assert.Equal(t, "bibtex main", recorded[1])
	assert.Contains(t, recorded[2], "pdflatex")
	assert.Contains(t, recorded[3], "pdflatex")
}

func TestRunToolchain_FallbackPrefersBiberOverBibtex(t *testing.T) {
	stubs, calls := stubEnv(t)
	installStub(t, stubs, "pdflatex", `echo "pdflatex $*" >> "$CALLS"
stem="${5%.tex}"
echo "aux" > "$stem.aux"
echo "bcf" > "$stem.bcf"
echo "%PDF-1.5 stub" > "$stem.pdf"`)
	installStub(t, stubs, "bibtex", `echo "bibtex $*" >> "$CALLS"`)
	installStub(t, stubs, "biber", `echo "biber $*" >> "$CALLS"`)

	work := t.TempDir()
	writeTree(t, work, map[string]string{"main.tex": `\documentclass{article}`})

	c := newTestCompiler(t)
	var log strings.Builder
	_, err := c.runToolchain(context.Background(), work, "main.tex", &log)

	require.NoError(t, err)
	recorded := readCalls(t, calls)
	require.Len(t, recorded, 4)
	assert.Equal(t, "biber main", recorded[1])
}

func TestRunToolchain_FallbackSkipsBibWithoutAux(t *testing.T) {
	stubs, calls := stubEnv(t)
	installStub(t, stubs, "pdflatex", `echo "pdflatex $*" >> "$CALLS"
stem="${5%.tex}"
echo "%PDF-1.5 stub" > "$stem.pdf"`)
	installStub(t, stubs, "bibtex", `echo "bibtex $*" >> "$CALLS"`)

	work := t.TempDir()
	writeTree(t, work, map[string]string{"main.tex": `\documentclass{article}`})

	c := newTestCompiler(t)
	var log strings.Builder
	_, err := c.runToolchain(context.Background(), work, "main.tex", &log)

	require.NoError(t, err)
	recorded := readCalls(t, calls)
	require.Len(t, recorded, 3)
	for _, call := range recorded {
		assert.Contains(t, call, "pdflatex")
	}
}

func TestRunTool_NonZeroExitTolerated(t *testing.T) {
	stubs, _ := stubEnv(t)
	installStub(t, stubs, "grumpy", `echo "! LaTeX Error: something broke"
exit 1`)

	c := newTestCompiler(t)
	var log strings.Builder
	err := c.runTool(context.Background(), t.TempDir(), 5*time.Second, &log, "grumpy")

	assert.NoError(t, err)
	assert.Contains(t, log.String(), "LaTeX Error")
}

func TestRunTool_TimeoutFatal(t *testing.T) {
	stubs, _ := stubEnv(t)
	installStub(t, stubs, "spin", `while :; do :; done`)

	c := newTestCompiler(t)
	var log strings.Builder
	err := c.runTool(context.Background(), t.TempDir(), 100*time.Millisecond, &log, "spin")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunTool_MissingBinaryFatal(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	c := newTestCompiler(t)
	var log strings.Builder
	err := c.runTool(context.Background(), t.TempDir(), time.Second, &log, "pdflatex")

	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestTailString(t *testing.T) {
	assert.Equal(t, "short", tailString("short", 100))
	assert.Equal(t, "de", tailString("abcde", 2))
	assert.Equal(t, "", tailString("abcde", 0))
	assert.Equal(t, "abcde", tailString("abcde", 5))
}
