package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"castsync/internal/library"
	"castsync/internal/seriessync"
)

func newSyncSeriesCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync-series",
		Short: "Push local series metadata to the remote platform",
		Long: "Creates remote counterparts for local series that lack one and updates\n" +
			"the metadata of those that have one. Without --force only reports what\n" +
			"would happen.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				series, err := s.store.ListSeries(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				created, updated, failed := 0, 0, 0
				for _, item := range series {
					remoteID, _ := item.Property(library.PropOpencast)
					if remoteID == seriessync.UnlinkedSentinel {
						continue
					}

					title := item.TitleIn(s.cfg.Import.DefaultLanguage)
					if remoteID == "" {
						if !force {
							fmt.Fprintf(out, "Would create remote series for %q (%s)\n", title, item.ID)
							continue
						}
						if err := s.series.CreateSeries(cmd.Context(), item); err != nil {
							failed++
							fmt.Fprintf(out, "Create failed for %q: %v\n", title, err)
							continue
						}
						created++
						continue
					}

					if !force {
						fmt.Fprintf(out, "Would update remote series %s for %q\n", remoteID, title)
						continue
					}
					if err := s.series.UpdateSeries(cmd.Context(), item); err != nil {
						failed++
						fmt.Fprintf(out, "Update failed for %q: %v\n", title, err)
						continue
					}
					updated++
				}

				if !force {
					fmt.Fprintln(out, "Dry run: pass --force to apply")
					return nil
				}

				fmt.Fprintf(out, "Series sync finished: %d created, %d updated, %d failed\n", created, updated, failed)
				if created > 0 || updated > 0 {
					if err := s.notifier.NotifySeriesSynced(cmd.Context(), created, updated, 0); err != nil {
						s.logger.Warn("series sync notification failed", "error", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Apply the changes instead of reporting them")
	return cmd
}
