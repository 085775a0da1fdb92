package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"castsync/internal/library"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <object-id>...",
		Short: "Delete local objects and retract their episodes when unreferenced",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					object, err := s.store.ObjectByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if object == nil {
						fmt.Fprintf(out, "Object %s not found\n", id)
						continue
					}

					mediaPackageID, _ := object.Property(library.PropOpencast)
					deleted, err := s.store.DeleteObject(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !deleted {
						fmt.Fprintf(out, "Object %s not found\n", id)
						continue
					}
					fmt.Fprintf(out, "Deleted object %s\n", id)

					if mediaPackageID != "" {
						s.workflows.HandleObjectDeleted(cmd.Context(), mediaPackageID)
					}
				}
				return nil
			})
		},
	}
	return cmd
}
