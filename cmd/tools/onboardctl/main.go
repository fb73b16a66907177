// cmd/tools/onboardctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospect-onboarding/internal/common/logger"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// options are the persistent flags shared by every subcommand.
type options struct {
	timezone string
	logLevel string
	asJSON   bool

	loc *time.Location
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "onboardctl",
		Short: "Inspect the prospect onboarding rules",
		Long: `onboardctl previews meeting schedules, walks the dossier workflow and
checks the worker registry without touching any running service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(opts.timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
			}
			opts.loc = loc
			opts.log = logger.NewStructured(opts.logLevel, "console")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.timezone, "timezone", "Europe/Paris", "timezone meeting dates are computed in")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	cmd.AddCommand(scheduleCmd(opts))
	cmd.AddCommand(workflowCmd(opts))
	cmd.AddCommand(stepsCmd(opts))
	cmd.AddCommand(workersCmd(opts))
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
