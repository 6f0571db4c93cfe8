package cmd

import (
	"fmt"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/spf13/cobra"
)

var imageFile string

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Update the profile image from a local file",
	Long:  `Update the profile image. Without --file the pick counts as cancelled and nothing is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		sess, err := session(cfg)
		if err != nil {
			return err
		}

		a := newApp(cfg)
		defer shutdown(a)

		images, err := a.Images()
		if err != nil {
			return err
		}
		img, err := images.FromFile(imageFile)
		if err != nil {
			return err
		}

		coord, err := a.Coordinator()
		if err != nil {
			return err
		}
		out, ran := coord.UpdateImage(cmd.Context(), sess, img)
		if !ran {
			fmt.Fprintln(cmd.OutOrStdout(), "No image selected, nothing to do")
			return nil
		}
		return printOutcome(cmd.OutOrStdout(), out)
	},
}

func init() {
	imageCmd.Flags().StringVar(&imageFile, "file", "", "path to the image file")
	rootCmd.AddCommand(imageCmd)
}
