package cmd

import (
	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/spf13/cobra"
)

var submitFlags = map[domain.Field]string{
	domain.FieldUsername:  "username",
	domain.FieldFirstName: "first-name",
	domain.FieldLastName:  "last-name",
	domain.FieldBio:       "bio",
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a profile form edit",
	Long: `Submit a profile edit. Only the fields whose flags are given count as
touched; passing an empty value clears the field.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New()
		sess, err := session(cfg)
		if err != nil {
			return err
		}

		edit := domain.ProfileEdit{Touched: domain.NewFieldSet()}
		for field, flag := range submitFlags {
			if !cmd.Flags().Changed(flag) {
				continue
			}
			v, _ := cmd.Flags().GetString(flag)
			edit.Touched.Add(field)
			switch field {
			case domain.FieldUsername:
				edit.Username = &v
			case domain.FieldFirstName:
				edit.FirstName = &v
			case domain.FieldLastName:
				edit.LastName = &v
			case domain.FieldBio:
				edit.Bio = &v
			}
		}
		edit.Normalize()

		a := newApp(cfg)
		defer shutdown(a)

		coord, err := a.Coordinator()
		if err != nil {
			return err
		}
		return printOutcome(cmd.OutOrStdout(), coord.Submit(cmd.Context(), sess, edit))
	},
}

func init() {
	for _, flag := range submitFlags {
		submitCmd.Flags().String(flag, "", "new "+flag)
	}
	rootCmd.AddCommand(submitCmd)
}
