package cmd

import (
	"errors"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/spf13/cobra"
)

var resyncUsername string

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Push the username to the identity provider again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resyncUsername == "" {
			return errors.New("--username is required")
		}
		cfg := config.New()
		sess, err := session(cfg)
		if err != nil {
			return err
		}

		a := newApp(cfg)
		defer shutdown(a)

		coord, err := a.Coordinator()
		if err != nil {
			return err
		}
		return printOutcome(cmd.OutOrStdout(), coord.ResyncUsername(cmd.Context(), sess, resyncUsername))
	},
}

func init() {
	resyncCmd.Flags().StringVar(&resyncUsername, "username", "", "username to sync")
	rootCmd.AddCommand(resyncCmd)
}
