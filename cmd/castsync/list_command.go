package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"castsync/internal/library"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported objects and their remote episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				objects, err := s.store.ObjectsWithProperty(cmd.Context(), library.PropOpencast)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(objects) == 0 {
					fmt.Fprintln(out, "No imported objects")
					return nil
				}

				rows := make([][]string, 0, len(objects))
				for _, object := range objects {
					mpID, _ := object.Property(library.PropOpencast)
					recorded := ""
					if !object.RecordDate.IsZero() {
						recorded = object.RecordDate.Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{
						strconv.FormatInt(object.NumericalID, 10),
						object.TitleIn(s.cfg.Import.DefaultLanguage),
						mpID,
						string(object.Status),
						strconv.Itoa(len(object.Tracks)),
						recorded,
					})
				}

				headers := []string{"#", "Title", "Media package", "Status", "Tracks", "Recorded"}
				if stdoutIsTerminal() {
					fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
					return nil
				}
				for _, row := range rows {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3], row[4], row[5])
				}
				return nil
			})
		},
	}
	return cmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
