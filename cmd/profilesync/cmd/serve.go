package cmd

import (
	"os/signal"
	"syscall"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg)
		defer shutdown(a)

		srv, err := a.Server()
		if err != nil {
			return err
		}
		return srv.Start(ctx, cfg.GetServerAddr())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
