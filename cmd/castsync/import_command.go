package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"castsync/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var invert bool
	var master bool

	cmd := &cobra.Command{
		Use:   "import <media-package-id>...",
		Short: "Import published episodes into the local library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				out := cmd.OutOrStdout()
				opts := importer.Options{Owner: owner, Invert: invert, Master: master}

				for _, id := range args {
					object, err := s.importer.ImportRecording(cmd.Context(), id, opts)
					if err != nil {
						return fmt.Errorf("import %s: %w", id, err)
					}
					fmt.Fprintf(out, "Imported %s as object %s (%d tracks, %d pics)\n",
						id, object.ID, len(object.Tracks), len(object.Pics))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of newly created objects")
	cmd.Flags().BoolVar(&invert, "invert", false, "Swap presenter and presentation panes in the player layout")
	cmd.Flags().BoolVar(&master, "master", false, "Import tracks from the archived master media package")
	return cmd
}
