package main

import (
	"context"
	"fmt"
	"os"

	"github.com/smallbiznis/trailbook/internal/auth"
	authdomain "github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func seedAdminCmd() *cobra.Command {
	var (
		username string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin user or reset its password",
		Long: `Create an admin user or reset its password and role.

The password is read from TRAILCTL_ADMIN_PASSWORD.

Examples:
  TRAILCTL_ADMIN_PASSWORD=... trailctl seed-admin --username ops
  TRAILCTL_ADMIN_PASSWORD=... trailctl seed-admin --username guide --role staff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("TRAILCTL_ADMIN_PASSWORD")
			if password == "" {
				return fmt.Errorf("TRAILCTL_ADMIN_PASSWORD is required")
			}

			var svc authdomain.Service
			return runApp(cmd.Context(), func(ctx context.Context) error {
				user, err := svc.Upsert(ctx, username, password, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s saved with role %s\n", user.Username, user.Role)
				return nil
			},
				coreModules(),
				auth.Module,
				fx.Populate(&svc),
			)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVar(&role, "role", authdomain.RoleAdmin, "role: admin or staff")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
