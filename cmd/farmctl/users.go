package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"farm-store/internal/service"
)

func createUserCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a customer account",
		Long: `Register a customer account without going through the web form.

Examples:
  farmctl create-user --email asha@example.com --password s3cret --name Asha`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			// Registration never touches reset tokens or mail.
			accounts := service.NewAccountService(e.store, e.store, nil, nil, e.cfg.Server.BaseURL, 0)

			ctx, cancel := commandContext(cmd)
			defer cancel()
			user, err := accounts.Register(ctx, name, email, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) created\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&password, "password", "", "initial password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
