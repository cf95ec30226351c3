package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stemdeck/internal/auth"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for the separation service",
		Long:  "Store a bearer token in auth.token_file. Pass --token - to read it from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			value := strings.TrimSpace(token)
			if value == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("a token is required (use --token)")
			}
			if err := auth.CheckToken(value, time.Now()); err != nil {
				return err
			}
			store := auth.NewSource(cfg).Store()
			if err := store.Save(auth.Credentials{Token: value, SavedAt: time.Now().UTC()}); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token saved to %s\n", store.Path())
			if exp, ok := auth.Expiry(value); ok {
				fmt.Fprintf(out, "Token expires %s\n", exp.Local().Format(time.RFC1123))
			}
			if cfg.Auth.Token != "" {
				fmt.Fprintln(out, "Note: STEMDECK_TOKEN is set and takes precedence over the saved token")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Bearer token, or - to read from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := auth.NewSource(cfg).Store()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token at %s\n", store.Path())
			return nil
		},
	}
}
