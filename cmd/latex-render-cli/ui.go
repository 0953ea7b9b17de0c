package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Feedback goes to stderr so a piped stdout stays clean.

func newSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return s
}

func newUploadBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}

func successf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func infof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.CyanString("ℹ"), fmt.Sprintf(format, args...))
}
