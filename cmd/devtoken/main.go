// Command devtoken mints user and admin tokens for local development against
// the storefront API. It refuses to run with APP_ENV=production.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallkeyy/storefront-api/internal/auth"
	"github.com/kallkeyy/storefront-api/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "devtoken",
		Short:        "Mint development tokens for the storefront API",
		SilenceUsage: true,
	}
	root.AddCommand(
		newSignCommand("user", "Mint a storefront customer token", func(cfg *config.Config, ttl time.Duration, id string) (string, time.Time, error) {
			return auth.NewSigner(cfg.Auth.UserJWTSecret, ttl).SignUser(id)
		}),
		newSignCommand("admin", "Mint an admin console token", func(cfg *config.Config, ttl time.Duration, id string) (string, time.Time, error) {
			return auth.NewSigner(cfg.Auth.AdminJWTSecret, ttl).SignAdmin(id)
		}),
	)
	return root
}

type signFunc func(cfg *config.Config, ttl time.Duration, id string) (string, time.Time, error)

func newSignCommand(use, short string, sign signFunc) *cobra.Command {
	var (
		id  string
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.App.IsProduction() {
				return errors.New("devtoken must not be used in production")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.DevTokenTTLMin) * time.Minute
			}

			token, expires, err := sign(cfg, ttl, id)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "subject id (Mongo ObjectID hex or Postgres UUID)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to AUTH_DEV_TOKEN_TTL_MINUTES)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
