package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit statuses follow init-script conventions: 0 success, 1 generic
// failure, 3 daemon not running.
const (
	exitOK         = 0
	exitFailure    = 1
	exitNotRunning = 3
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				_, _ = fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

// exitError carries a process exit status for conditions that are part of
// normal operation, like querying a stopped daemon.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
}

// StartFlags holds flags for the start command.
type StartFlags struct {
	Foreground bool
}

// buildRoot assembles the CLI command tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	startFlags := &StartFlags{}

	c := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(c, startFlags),
		createStopCommand(c),
		createRestartCommand(c),
		createStatusCommand(c),
		createRunOnceCommand(c),
		createVersionCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "fundmgr",
		Short: "Daily fund holdings report daemon",
		Long: `Fundmgr watches a fixed set of fund holdings, computes daily gain/loss
and a short trend forecast, and delivers the report through the configured
notification channels once a day.

Examples:
  fundmgr start --config=config.toml      # run in the background
  fundmgr start --foreground              # stay attached to the terminal
  fundmgr status
  fundmgr run-once                        # one report now, no daemon
  fundmgr stop`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "config.toml", "path to TOML config file")
	return root
}

func createStartCommand(c command, flags *StartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the report daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Foreground, "foreground", false, "stay in the foreground instead of daemonizing")
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop()
		},
	}
}

func createRestartCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart()
		},
	}
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status()
		},
	}
}

func createRunOnceCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Produce and deliver one report in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.RunOnce()
		},
	}
}

var version = "dev"

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fundmgr version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fundmgr %s\n", version)
		},
	}
}
