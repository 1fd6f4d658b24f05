package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/logger"
)

const envLogLevel = "MEMCTL_LOG_LEVEL"

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Exercise and inspect memkit allocators and containers",
	Long: `memctl runs small workloads against the memkit allocator, chunk
manager, ordered map, ring buffer and byte buffer and prints what they did.
It is meant for poking at pooling behavior and encodings from a shell.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initLogging() },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Enable library logging at this level (debug, info, warn, error)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("memctl: command failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnv reads .env from the working directory if there is one. Variables
// already set in the environment win.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}
}

// initLogging enables the library logger when --log-level or MEMCTL_LOG_LEVEL
// names a level. Logs go to stderr so they never mix with --json output.
func initLogging() error {
	name := logLevel
	if name == "" {
		name = os.Getenv(envLogLevel)
	}
	if name == "" {
		logger.Init(logger.Options{})
		return nil
	}
	level, ok := logger.ParseLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	logger.Init(logger.Options{Enabled: true, Writer: os.Stderr, Level: level})
	logger.Info("memctl: library logging enabled", "level", level.String())
	return nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
