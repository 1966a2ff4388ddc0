package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/rules"
)

func newHarvestCmd(a *app) *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "harvest [text-file]",
		Short: "Apply the pattern library to plain text",
		Long:  "Harvests the text given with --text, read from the file argument, or read from stdin when neither is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("text") {
				var r io.Reader = cmd.InOrStdin()
				if len(args) == 1 && args[0] != "-" {
					f, err := os.Open(args[0])
					if err != nil {
						return err
					}
					defer f.Close()
					r = f
				}
				data, err := io.ReadAll(r)
				if err != nil {
					return fmt.Errorf("failed to read text: %w", err)
				}
				text = string(data)
			}

			registry, err := rules.NewRegistry(a.config.Rules.CustomFile, a.log)
			if err != nil {
				return err
			}
			result := registry.Compiled().Harvest(text)
			status := harvest.Label(harvest.Classify(result), false)

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return json.NewEncoder(out).Encode(map[string]any{
					"status":       status,
					"statusReason": result.StatusReason,
					"findings":     result.Findings,
					"diagnostics":  result.Diagnostics,
				})
			}

			fmt.Fprintf(out, "%s: %s\n", status, result.StatusReason)
			for _, f := range result.Findings {
				fmt.Fprintf(out, "  %s: %s\n", f.Category, f.Text)
			}
			for _, d := range result.Diagnostics {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped rule %s %q: %s\n", d.Category, d.Pattern, d.Cause)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Text to harvest")
	return cmd
}
