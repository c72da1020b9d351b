package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/a3tai/acord-field-extractor/internal/app"
	"github.com/a3tai/acord-field-extractor/internal/config"
	"github.com/a3tai/acord-field-extractor/internal/logging"
	"github.com/a3tai/acord-field-extractor/internal/mcp"
)

const programName = "acord-fields-mcp"

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging creates the server logger. Stdout carries the MCP protocol, so
// logs always go to stderr and are limited to warnings unless debug is enabled.
func setupLogging(cfg *config.Config, stderr io.Writer) (*logrus.Logger, error) {
	level := cfg.LogLevel
	if !cfg.IsDebug() && level == config.DefaultLogLevel {
		level = "warn"
	}
	return logging.New(level, stderr)
}

func main() {
	cfg, err := config.LoadServer(programName, os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(os.Stdout)
		return
	case errors.Is(err, pflag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := setupLogging(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logger.Debugf("Starting with configuration: %s", cfg.String())

	service, err := app.NewService(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create extraction service: %v", err)
	}

	server, err := mcp.NewServer(cfg, service, logger)
	if err != nil {
		logger.Fatalf("Failed to create MCP server: %v", err)
	}

	// The parent process controls our lifecycle; stop on EOF or a signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Errorf("Server error: %v", err)
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ACORD Field Extractor MCP Server\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
