package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pastibot/companion/internal/cli"
	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(cli.ExitFailure)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pastibot",
	Short: "Pastibot companion client",
	Long: "pastibot signs in to the Pastibot backend, keeps the session on disk and " +
		"follows the medication dispenser. Configuration comes from the environment (.env is read when present).",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("pastibot version %s\n", version))
	cli.AddCommands(rootCmd)
}
