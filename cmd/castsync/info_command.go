package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the remote platform version and its entry point URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Library:   %s\n", s.store.Path())
				fmt.Fprintf(out, "Host:      %s\n", s.client.Host())

				version, err := s.client.Version(cmd.Context())
				if err != nil {
					return fmt.Errorf("platform unreachable: %w", err)
				}
				fmt.Fprintf(out, "Version:   %s\n", version)

				adminURL, err := s.client.AdminURL(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Admin:     %s\n", adminURL)
				fmt.Fprintf(out, "Player:    %s\n", s.client.PlayerURL())

				if schedulerURL, err := s.client.SchedulerURL(cmd.Context()); err == nil {
					fmt.Fprintf(out, "Scheduler: %s\n", schedulerURL)
				}
				if dashboardURL, err := s.client.DashboardURL(cmd.Context()); err == nil {
					fmt.Fprintf(out, "Dashboard: %s\n", dashboardURL)
				}
				return nil
			})
		},
	}
	return cmd
}
