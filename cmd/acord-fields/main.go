package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/a3tai/acord-field-extractor/internal/app"
	"github.com/a3tai/acord-field-extractor/internal/config"
	"github.com/a3tai/acord-field-extractor/internal/logging"
	"github.com/a3tai/acord-field-extractor/internal/report"
)

const programName = "acord-fields"

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one extraction and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadCLI(programName, args, stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(stdout)
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if cfg.Explain {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.IsDebug() {
		logger.Debugf("Starting with configuration: %s", cfg.String())
	}

	service, err := app.NewService(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "\n✗ Error: %v\n", err)
		return 1
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	printBanner(stdout)

	result, err := service.Extract(ctx, cfg.InputPath, 0)
	if err != nil {
		fmt.Fprintf(stderr, "\n✗ Error: %v\n", err)
		return 1
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintf(stderr, "\n✗ Error: %v\n", err)
		return 1
	}
	if err := report.SaveFile(cfg.OutputPath, result, format); err != nil {
		fmt.Fprintf(stderr, "\n✗ Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "\n✓ Results saved to: %s\n", cfg.OutputPath)
	fmt.Fprintf(stdout, "✓ Total unique fields found: %d\n", len(result.Fields))
	fmt.Fprintln(stdout, "\n✓ Extraction complete!")
	return 0
}

func printBanner(w io.Writer) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\nACORD Field Extractor\n%s\n\n", rule, rule)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ACORD Field Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
