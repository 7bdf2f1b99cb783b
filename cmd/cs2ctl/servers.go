package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"cs2ctl/internal/config"
	"cs2ctl/internal/keychain"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Manage the server list",
}

var (
	addConnectTimeoutMs int
	addCommandTimeoutMs int
	addDefault          bool
	addNoPassword       bool
)

var serversAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a server entry",
	Long: `Add a server entry, or replace the one with the same name. The RCON
password is taken from --password or prompted for, and stored in the OS
keychain rather than the config file.`,
	Example: `  cs2ctl servers add main -H 203.0.113.10 --default
  cs2ctl servers add scrim -H 198.51.100.7 -p 27016 --command-timeout-ms 10000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if flagHost == "" {
			return fmt.Errorf("--host is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg.Upsert(config.Server{
			Name:             name,
			Host:             flagHost,
			Port:             flagPort,
			ConnectTimeoutMs: addConnectTimeoutMs,
			CommandTimeoutMs: addCommandTimeoutMs,
		})
		if addDefault {
			cfg.DefaultServer = name
		}

		if !addNoPassword {
			pw := flagPassword
			if pw == "" {
				pw, err = promptPassword(fmt.Sprintf("RCON password for %s: ", name))
				if err != nil {
					return err
				}
			}
			store, err := keychain.Open()
			if err != nil {
				return fmt.Errorf("open keychain: %w", err)
			}
			if err := store.SetPassword(name, pw); err != nil {
				return fmt.Errorf("store password: %w", err)
			}
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		pterm.Success.Printf("saved server %q (%s:%d)\n", name, flagHost, flagPort)
		return nil
	},
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Servers) == 0 {
			pterm.Info.Println("no servers configured; add one with 'cs2ctl servers add'")
			return nil
		}

		rows := pterm.TableData{{"Name", "Address", "Default"}}
		for _, s := range cfg.Servers {
			def := ""
			if s.Name == cfg.DefaultServer {
				def = "*"
			}
			rows = append(rows, []string{s.Name, s.Host + ":" + strconv.Itoa(s.Port), def})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var serversRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server entry and its stored password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.Remove(name) {
			return fmt.Errorf("unknown server %q", name)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		if store, err := keychain.Open(); err == nil {
			if err := store.DeletePassword(name); err != nil {
				pterm.Warning.Printf("keychain entry not removed: %v\n", err)
			}
		}
		pterm.Success.Printf("removed server %q\n", name)
		return nil
	},
}

func init() {
	f := serversAddCmd.Flags()
	f.IntVar(&addConnectTimeoutMs, "connect-timeout-ms", 0, "Connect timeout in milliseconds (0 for default)")
	f.IntVar(&addCommandTimeoutMs, "command-timeout-ms", 0, "Command timeout in milliseconds (0 for default)")
	f.BoolVar(&addDefault, "default", false, "Make this the default server")
	f.BoolVar(&addNoPassword, "no-password", false, "Skip storing a password in the keychain")

	serversCmd.AddCommand(serversAddCmd, serversListCmd, serversRemoveCmd)
	rootCmd.AddCommand(serversCmd)
}
