// Package main provides the LaTeX Render CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	// Global flags
	server  string
	apiKey  string
	timeout time.Duration
	noColor bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "latex-render-cli",
	Short: "Client for the LaTeX Render API",
	Long: `latex-render-cli compiles LaTeX projects through a render API instance.

Point it at a project directory or a prebuilt .zip: the archive is uploaded
through a presigned URL, compiled server-side, and the PDF lands next to you.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&server, "server", defaultServer(), "render API base URL (env LATEX_RENDER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("LATEX_RENDER_API_KEY"), "API key (env LATEX_RENDER_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "overall request timeout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func defaultServer() string {
	if s := os.Getenv("LATEX_RENDER_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newHealthCmd creates the health subcommand.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the render API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := NewClient(server, apiKey, 30*time.Second).Health(ctx); err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			successf("API healthy at %s", server)
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("latex-render-cli v%s\n", version)
		},
	}
}
