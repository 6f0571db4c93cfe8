package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nfrund/profilesync/internal/app"
	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/logging"
	"github.com/nfrund/profilesync/internal/middleware"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	userID string
	token  string

	// newApp is swapped in tests.
	newApp = func(cfg *config.Config) *app.App { return app.New(cfg, afero.NewOsFs()) }
)

var rootCmd = &cobra.Command{
	Use:   "profilesync",
	Short: "Reconcile profile edits across the identity provider and the application store",
	Long: `profilesync runs the profile reconciliation flows from the command line.

Available commands:
  serve      Run the HTTP server
  submit     Submit a profile form edit
  image      Update the profile image from a local file
  resync     Push the username to the identity provider again
  token      Mint a development bearer token

Use "profilesync [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.New()
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "identity provider user id")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "application store bearer token (minted from APP_JWT_SECRET when empty)")
}

// session resolves the caller's session, minting a short-lived token from
// APP_JWT_SECRET when none was given.
func session(cfg *config.Config) (domain.Session, error) {
	if userID == "" {
		return domain.Session{}, errors.New("--user is required")
	}
	tok := token
	if tok == "" {
		if cfg.GetAppJWTSecret() == "" {
			return domain.Session{}, errors.New("--token is required when APP_JWT_SECRET is not set")
		}
		var err error
		tok, err = middleware.SignToken([]byte(cfg.GetAppJWTSecret()), userID, 5*time.Minute)
		if err != nil {
			return domain.Session{}, fmt.Errorf("mint token: %w", err)
		}
	}
	return domain.Session{UserID: userID, Token: tok}, nil
}

func printOutcome(w io.Writer, out domain.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !out.Status.Success() {
		return fmt.Errorf("%s: %s", out.Status, out.Message)
	}
	return nil
}

func shutdown(a *app.App) {
	_ = a.Shutdown(context.Background())
}
