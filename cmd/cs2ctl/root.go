package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cs2ctl/internal/version"
)

var (
	flagServer   string
	flagHost     string
	flagPort     int
	flagPassword string
	flagVerbose  bool

	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:           "cs2ctl",
	Short:         "Administer CS2 dedicated servers over RCON",
	Long:          `cs2ctl connects to Counter-Strike 2 dedicated servers over the Source RCON protocol to run console commands, remotely and scriptably.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("cs2ctl %s (%s)\n", version.Version, version.Commit)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI, printing any error to stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logger returns a debug logger when --verbose is set, nil otherwise.
// A nil logger makes the RCON client discard diagnostics.
func logger() *slog.Logger {
	if !flagVerbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "s", "", "Named server entry from the config")
	pf.StringVarP(&flagHost, "host", "H", "", "Server address (overrides --server)")
	pf.IntVarP(&flagPort, "port", "p", 27015, "RCON port")
	pf.StringVar(&flagPassword, "password", "", "RCON password (prefer keychain or RCON_PASSWORD)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log protocol diagnostics to stderr")
}
