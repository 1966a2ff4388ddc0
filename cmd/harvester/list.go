package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/repository"
	"github.com/feichai0017/document-harvester/pkg/converters"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored document records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := repository.Open(ctx, a.config.Database.Path, a.log)
			if err != nil {
				return err
			}
			defer repo.Close()

			docs, err := repo.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return json.NewEncoder(out).Encode(docs)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tFINDINGS")
			for _, d := range docs {
				groups := converters.GroupFindings(d.Findings)
				summary := ""
				for i, g := range groups {
					if i > 0 {
						summary += " "
					}
					summary += fmt.Sprintf("%s=%d", g.Type, len(g.Values))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Filename, d.Status, summary)
			}
			return w.Flush()
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all document records to an Excel report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := repository.Open(ctx, a.config.Database.Path, a.log)
			if err != nil {
				return err
			}
			defer repo.Close()

			docs, err := repo.List(ctx)
			if err != nil {
				return err
			}
			data, err := converters.NewXLSXConverter().Export(docs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d documents to %s\n", len(docs), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "documents.xlsx", "Report path")
	return cmd
}
