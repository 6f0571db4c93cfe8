package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/middleware"
	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		if userID == "" {
			return errors.New("--user is required")
		}
		if cfg.GetAppJWTSecret() == "" {
			return errors.New("APP_JWT_SECRET is not set")
		}
		tok, err := middleware.SignToken([]byte(cfg.GetAppJWTSecret()), userID, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
