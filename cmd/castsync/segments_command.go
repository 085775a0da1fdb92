package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"castsync/internal/library"
)

func newImportSegmentsCommand(ctx *commandContext) *cobra.Command {
	var objectID string
	var force bool

	cmd := &cobra.Command{
		Use:   "import-segments",
		Short: "Fetch slide segments for imported objects",
		Long: "Fetches the slide segments of imported objects that lack them. Without\n" +
			"--force only reports what would happen.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				var objects []*library.MultimediaObject
				if objectID != "" {
					object, err := s.store.ObjectByID(cmd.Context(), objectID)
					if err != nil {
						return err
					}
					if object == nil {
						return fmt.Errorf("object %s not found", objectID)
					}
					objects = append(objects, object)
				} else {
					all, err := s.store.ObjectsWithProperty(cmd.Context(), library.PropOpencast)
					if err != nil {
						return err
					}
					objects = all
				}

				out := cmd.OutOrStdout()
				delay := time.Duration(s.cfg.Opencast.BatchDelaySeconds) * time.Second
				updated, skipped := 0, 0
				for _, object := range objects {
					// Explicit selection by id refreshes even when segments
					// are already present.
					if len(object.Segments) > 0 && objectID == "" {
						skipped++
						continue
					}
					if !force {
						fmt.Fprintf(out, "Would fetch segments for %s\n", object.ID)
						continue
					}

					found, err := s.importer.ImportSegments(cmd.Context(), object)
					if err != nil {
						fmt.Fprintf(out, "Segments failed for %s: %v\n", object.ID, err)
						continue
					}
					if found {
						updated++
						fmt.Fprintf(out, "Stored %d segments for %s\n", len(object.Segments), object.ID)
					}

					if delay > 0 {
						select {
						case <-cmd.Context().Done():
							return cmd.Context().Err()
						case <-time.After(delay):
						}
					}
				}

				if !force {
					fmt.Fprintln(out, "Dry run: pass --force to apply")
					return nil
				}

				fmt.Fprintf(out, "Segments finished: %d updated, %d skipped\n", updated, skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&objectID, "id", "", "Restrict to one object")
	cmd.Flags().BoolVar(&force, "force", false, "Apply the changes instead of reporting them")
	return cmd
}
