package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/service/document"
)

func newCleanupCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stored uploads and outputs older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := document.GetService(ctx, a.config, a.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.CleanupTasks(ctx, olderThan); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed stored files older than %s\n", olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Age threshold")
	return cmd
}
