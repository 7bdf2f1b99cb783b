package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cs2ctl/internal/client"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Run one console command and print the response",
	Example: `  cs2ctl exec -s main status
  cs2ctl exec -H 203.0.113.10 -p 27015 changelevel de_inferno`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := resolveClientConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := client.New(cfg)
		if err := c.Connect(ctx); err != nil {
			return err
		}
		defer c.Disconnect()

		resp, err := c.SendCommand(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if resp != "" {
			fmt.Print(resp)
			if !strings.HasSuffix(resp, "\n") {
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
