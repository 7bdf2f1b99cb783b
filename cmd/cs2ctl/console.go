package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cs2ctl/internal/client"
	"cs2ctl/internal/config"
	"cs2ctl/internal/history"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive RCON console",
	Long: `Open an interactive console on a server. Every line is sent as an RCON
command; the reassembled response is printed below it.

Builtins:
  help          show this list
  history       list executed commands
  !N, !!        re-run history entry N / the last command
  quick         list configured quick commands
  @N            run quick command N
  exit, quit    close the session`,
	Args: cobra.NoArgs,
}

func init() {
	consoleCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, label, err := resolveClientConfig()
		if err != nil {
			return err
		}
		stored, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := client.New(cfg)

		// Surface session transitions and faults in the console as they
		// happen, the way the state machine reports them.
		go func() {
			for ev := range c.Events() {
				if ev.Err != nil {
					pterm.Error.Printf("session %s: %v\n", ev.To, ev.Err)
					continue
				}
				pterm.FgGray.Printf("· session %s\n", ev.To)
			}
		}()

		if err := c.Connect(ctx); err != nil {
			return err
		}
		defer c.Disconnect()

		pterm.Success.Printf("connected to %s\n", label)
		if len(stored.QuickCommands) > 0 {
			pterm.FgGray.Printf("· %d quick commands available (run 'quick')\n", len(stored.QuickCommands))
		}

		repl(ctx, c, stored.QuickCommands)
		return nil
	}
}

// repl reads lines from stdin until EOF, exit, or session loss. The
// prompt is only shown when stdin is a terminal, so piped scripts get
// clean output.
func repl(ctx context.Context, c *client.Client, quick []string) {
	hist := history.New(0)
	scanner := bufio.NewScanner(os.Stdin)
	interactive := term.IsTerminal(int(syscall.Stdin))

	for {
		if interactive {
			fmt.Print("rcon> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Println()
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		line, ok := expand(line, hist, quick)
		if !ok {
			continue
		}

		switch line {
		case "exit", "quit":
			return
		case "help":
			fmt.Println(consoleCmd.Long)
			continue
		case "history":
			for i, entry := range hist.Entries() {
				fmt.Printf("%4d  %s\n", i+1, entry)
			}
			continue
		case "quick":
			if len(quick) == 0 {
				pterm.Info.Println("no quick commands configured")
				continue
			}
			for i, q := range quick {
				fmt.Printf("  @%d  %s\n", i+1, q)
			}
			continue
		}

		hist.Add(line)
		resp, err := c.SendCommand(ctx, line)
		if err != nil {
			pterm.Error.Println(err)
			if isOneOf(err, client.ErrConnectionLost, client.ErrProtocol, client.ErrCancelled) {
				return // session is gone; timeouts fall through and keep the console open
			}
			continue
		}
		if resp != "" {
			fmt.Print(resp)
			if !strings.HasSuffix(resp, "\n") {
				fmt.Println()
			}
		}
	}
}

// expand resolves !N, !! and @N shortcuts. The second return is false
// when the shortcut does not resolve.
func expand(line string, hist *history.History, quick []string) (string, bool) {
	switch {
	case line == "!!":
		last := hist.Last()
		if last == "" {
			pterm.Warning.Println("history is empty")
			return "", false
		}
		fmt.Println(last)
		return last, true

	case strings.HasPrefix(line, "!"):
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return line, true // a literal command starting with '!'
		}
		entry := hist.At(n)
		if entry == "" {
			pterm.Warning.Printf("no history entry %d\n", n)
			return "", false
		}
		fmt.Println(entry)
		return entry, true

	case strings.HasPrefix(line, "@"):
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return line, true
		}
		if n < 1 || n > len(quick) {
			pterm.Warning.Printf("no quick command %d\n", n)
			return "", false
		}
		fmt.Println(quick[n-1])
		return quick[n-1], true
	}
	return line, true
}

// isOneOf reports whether err matches any of the given sentinels.
func isOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
