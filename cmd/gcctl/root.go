package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/gckit/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logJSON bool
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "gcctl",
	Short: "Exercise and inspect the gckit copying collector",
	Long: `gcctl drives a per-thread copying heap from the command line. It can
run randomized allocation workloads against the collector, walk through the
collector's behavior on small object graphs, and report collection statistics.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and collector debug logs")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write collector logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write collector logs to daily files in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging enables the collector's logs when verbose output or a log
// directory was requested.
func initLogging() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logger.Init(logger.Options{
		Enabled: (verbose && !quiet) || logDir != "",
		LogDir:  logDir,
		Level:   level,
		JSON:    logJSON,
	})
}

// Helper functions for output

// printer formats counts with digit grouping.
var printer = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatBytes renders n in the units the size flags accept.
func formatBytes(n int64) string {
	return bytesize.New(float64(n)).String()
}
