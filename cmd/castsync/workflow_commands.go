package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStopWorkflowsCommand(ctx *commandContext) *cobra.Command {
	var mediaPackageID string

	cmd := &cobra.Command{
		Use:   "stop-workflows",
		Short: "Stop succeeded deletion workflows on the remote platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				clean, err := s.workflows.StopSucceededWorkflows(cmd.Context(), mediaPackageID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !clean {
					fmt.Fprintln(out, "Finished with errors; see the log for details")
					return nil
				}
				fmt.Fprintln(out, "All succeeded workflows stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaPackageID, "mediapackage", "", "Restrict cleanup to one media package")
	return cmd
}

func newRetractCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retract <media-package-id>...",
		Short: "Retract remote episodes that no local object references anymore",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				for _, id := range args {
					s.workflows.HandleObjectDeleted(cmd.Context(), id)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Retraction requested; see the log for per-episode outcomes")
				return nil
			})
		},
	}
	return cmd
}
