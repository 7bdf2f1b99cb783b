package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"cs2ctl/internal/client"
	"cs2ctl/internal/config"
	"cs2ctl/internal/keychain"
)

// resolveClientConfig turns flags, the config file, the keychain and the
// environment into a client.Config.
//
// Address: --host wins; otherwise --server (or the configured default
// server) names a config entry. Password resolution order: --password,
// RCON_PASSWORD, keychain entry for the server name, interactive prompt.
func resolveClientConfig() (client.Config, string, error) {
	cfg := client.Config{Logger: logger()}

	name := flagServer
	if flagHost != "" {
		cfg.Host = flagHost
		cfg.Port = flagPort
	} else {
		stored, err := config.Load()
		if err != nil {
			return cfg, "", err
		}
		if name == "" {
			name = stored.DefaultServer
		}
		if name == "" {
			return cfg, "", errors.New("no server given: use --host, --server, or set a default with 'cs2ctl servers add --default'")
		}
		entry, ok := stored.Find(name)
		if !ok {
			return cfg, "", fmt.Errorf("unknown server %q: add it with 'cs2ctl servers add'", name)
		}
		cfg.Host = entry.Host
		cfg.Port = entry.Port
		cfg.ConnectTimeout = entry.ConnectTimeout()
		cfg.CommandTimeout = entry.CommandTimeout()
	}

	password, err := resolvePassword(name)
	if err != nil {
		return cfg, "", err
	}
	cfg.Password = password

	label := name
	if label == "" {
		label = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	return cfg, label, nil
}

func resolvePassword(server string) (string, error) {
	if flagPassword != "" {
		return flagPassword, nil
	}
	if pw := os.Getenv("RCON_PASSWORD"); pw != "" {
		return pw, nil
	}
	if server != "" {
		store, err := keychain.Open()
		if err == nil {
			pw, err := store.Password(server)
			if err == nil {
				return pw, nil
			}
			if !errors.Is(err, keychain.ErrNotFound) {
				return "", err
			}
		}
	}
	return promptPassword("RCON password: ")
}

// promptPassword reads a password without echo. Fails when stdin is not a
// terminal rather than silently reading a pipe.
func promptPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", errors.New("no password: set RCON_PASSWORD, use --password, or store one with 'cs2ctl servers add'")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
