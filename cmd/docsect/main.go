// Command docsect ranks the sections of a document collection against a
// persona and a task.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/docsect/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	logLevel   string

	cfg config.Config
	log *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docsect",
	Short: "Extract the sections of a document collection that matter for a persona and task",
	Long: `docsect parses PDF, Markdown, HTML, DOCX and text documents, detects their
headings, and ranks the sections against a persona and a job to be done.

Examples:
  # Batch run over input/ using a request file
  docsect analyze input/challenge1b_input.json

  # Show the detected outline of one file
  docsect outline input/guide.pdf

  # Run the HTTP API
  DOCSECT_API_KEY=secret docsect serve`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log = newLogger(cmd.Name() == "serve", cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(analyzeCmd, outlineCmd, serveCmd)
}

// newLogger returns a JSON logger on stdout for the server and a text
// logger on stderr for batch commands.
func newLogger(server bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if server {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
