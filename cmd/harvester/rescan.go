package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/internal/service/document"
)

func newRescanCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rescan [id]...",
		Short: "Re-apply the current patterns to stored text",
		Long:  "Harvests the stored text of the given records again with the current pattern library. Nothing is extracted again; the OCR flag of each record is kept.",
		Args: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("give at least one record id or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := document.GetService(ctx, a.config, a.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			ids := args
			if all {
				docs, err := svc.List(ctx)
				if err != nil {
					return err
				}
				ids = nil
				for _, d := range docs {
					ids = append(ids, d.ID)
				}
			}

			out := cmd.OutOrStdout()
			var updated []*models.Document
			for _, id := range ids {
				doc, err := svc.Rescan(ctx, id)
				if err != nil {
					return err
				}
				updated = append(updated, doc)
				if !a.jsonOutput {
					fmt.Fprintf(out, "%s\t%s\t%s\n", doc.ID, doc.Filename, doc.Status)
				}
			}
			if a.jsonOutput {
				return json.NewEncoder(out).Encode(updated)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Rescan every stored record")
	return cmd
}
