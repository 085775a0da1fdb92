package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"castsync/internal/importer"
	"castsync/internal/library"
)

// batchPageSize is how many episodes one search page covers during batch
// imports.
const batchPageSize = 200

func newBatchImportCommand(ctx *commandContext) *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "batchimport",
		Short: "Import every published episode not yet in the local library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				lockPath := filepath.Join(s.cfg.Paths.DataDir, "castsync.lock")
				lock := flock.New(lockPath)
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire batch lock: %w", err)
				}
				if !locked {
					return fmt.Errorf("another batch import is running (lock %s)", lockPath)
				}
				defer lock.Unlock()

				out := cmd.OutOrStdout()
				opts := importer.Options{Invert: s.cfg.Import.BatchInverted}
				delay := time.Duration(s.cfg.Opencast.BatchDelaySeconds) * time.Second

				imported, failed, skipped := 0, 0, 0
				started := time.Now()
				offset := 0
				for {
					total, packages, ok, err := s.client.MediaPackages(cmd.Context(), query, batchPageSize, offset)
					if err != nil {
						return err
					}
					if !ok || len(packages) == 0 {
						break
					}

					for _, mp := range packages {
						if limit > 0 && imported+failed >= limit {
							break
						}
						existing, err := s.store.FindObjectByProperty(cmd.Context(), library.PropOpencast, mp.ID())
						if err != nil {
							return err
						}
						if existing != nil {
							skipped++
							continue
						}

						if _, err := s.importer.ImportRecordingFromMediaPackage(cmd.Context(), mp, opts); err != nil {
							failed++
							fmt.Fprintf(out, "Failed %s: %v\n", mp.ID(), err)
							continue
						}
						imported++

						if delay > 0 {
							select {
							case <-cmd.Context().Done():
								return cmd.Context().Err()
							case <-time.After(delay):
							}
						}
					}

					offset += len(packages)
					if offset >= total || (limit > 0 && imported+failed >= limit) {
						break
					}
				}

				duration := time.Since(started)
				fmt.Fprintf(out, "Batch finished: %d imported, %d failed, %d already present (%s)\n",
					imported, failed, skipped, duration.Round(time.Second))
				if imported > 0 || failed > 0 {
					if err := s.notifier.NotifyBatchCompleted(cmd.Context(), imported, failed, duration); err != nil {
						s.logger.Warn("batch notification failed", "error", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Restrict the batch to episodes matching a search query")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many import attempts (0 = no limit)")
	return cmd
}
