package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(s *services) error {
				if err := s.notifier.TestNotification(cmd.Context()); err != nil {
					return err
				}
				if s.cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No ntfy topic configured; nothing was sent")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}
