package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"elevadorpro/internal/auth"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check dashboard credentials against the users collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			senha, _ := cmd.Flags().GetString("senha")
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := auth.New(a.svc, auth.WithLogger(a.log)).Check(ctx, email, senha)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s) -> %s\n", user.Nome, user.Email, user.Role, auth.HomeFor(user.Role))
			return nil
		},
	}
	cmd.Flags().String("email", "", "user e-mail")
	cmd.Flags().String("senha", "", "user password")
	return cmd
}
