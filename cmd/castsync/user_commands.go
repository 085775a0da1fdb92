package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"castsync/internal/opencast"
	"castsync/internal/provision"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Mirror local accounts onto the remote platform",
	}
	cmd.AddCommand(newUserCreateCommand(ctx))
	cmd.AddCommand(newUserUpdateCommand(ctx))
	cmd.AddCommand(newUserDeleteCommand(ctx))
	return cmd
}

func newUserCreateCommand(ctx *commandContext) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Provision a remote account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				service := provision.New(s.client, s.logger)
				if service.UserCreated(cmd.Context(), opencast.User{Username: args[0], Roles: roles}) {
					fmt.Fprintf(cmd.OutOrStdout(), "Created remote account %s\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No account created; see the log for details")
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&roles, "role", nil, "Role to grant (repeatable)")
	return cmd
}

func newUserUpdateCommand(ctx *commandContext) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "update <username>",
		Short: "Replace the roles and password of a remote account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				service := provision.New(s.client, s.logger)
				if service.UserUpdated(cmd.Context(), opencast.User{Username: args[0], Roles: roles}) {
					fmt.Fprintf(cmd.OutOrStdout(), "Updated remote account %s\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No account updated; see the log for details")
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&roles, "role", nil, "Role to grant (repeatable)")
	return cmd
}

func newUserDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Remove a remote account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				service := provision.New(s.client, s.logger)
				if service.UserDeleted(cmd.Context(), args[0]) {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted remote account %s\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No account deleted; see the log for details")
				return nil
			})
		},
	}
	return cmd
}
