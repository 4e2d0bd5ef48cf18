package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [base-url]",
	Short: "Store remote sync credentials",
	Long: `Configure remote sync by storing the document service URL and an
access token in config.yaml.

The token is read from the terminal without echo and verified against the
service before it is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := cfg.Remote.BaseURL
		if len(args) == 1 {
			baseURL = strings.TrimRight(args[0], "/")
		}
		if baseURL == "" {
			return fmt.Errorf("no service URL configured; run 'daybook login <base-url>'")
		}

		fmt.Print("Access token: ")
		tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			return fmt.Errorf("token must not be empty")
		}

		cfg.Remote.BaseURL = baseURL
		cfg.Remote.Token = token

		rc := newRemote(nil)
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		if !rc.ValidateCredentials(ctx) {
			return fmt.Errorf("credential check against %s failed", baseURL)
		}

		if err := cfg.save(); err != nil {
			return err
		}

		fmt.Printf("Logged in to %s\n", baseURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored remote sync credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Remote.Token == "" {
			fmt.Println("Not logged in")
			return nil
		}

		cfg.Remote.Token = ""
		if err := cfg.save(); err != nil {
			return err
		}

		fmt.Println("Logged out; local data is untouched")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
