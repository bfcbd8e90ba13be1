package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/codescribe/internal/app"
	"github.com/dshills/codescribe/internal/config"
	"github.com/dshills/codescribe/internal/console"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "codescribe"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		console.New(os.Stderr, nil).Error(err)
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	// Variables already in the environment win over .env
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	// Cancel in-flight work on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := app.NewRootCommand(version, build, programName, app.DefaultRunParams())
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}
