package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/rules"
)

func newPatternsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and extend the pattern library",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show built-in and custom patterns in evaluation order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				registry, err := rules.NewRegistry(a.config.Rules.CustomFile, a.log)
				if err != nil {
					return err
				}
				lib := registry.Library()
				out := cmd.OutOrStdout()
				if a.jsonOutput {
					return json.NewEncoder(out).Encode(lib.Groups())
				}
				for _, g := range lib.Groups() {
					fmt.Fprintf(out, "%s:\n", g.Category)
					for _, r := range g.Rules {
						fmt.Fprintf(out, "  %-8s %s\n", r.Source, r.Pattern)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <category> <pattern>",
			Short: "Append a custom pattern",
			Long:  "Appends a pattern to the custom patterns file. Labels are normalised, so \"QA Number\" adds to qa_number.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				registry, err := rules.NewRegistry(a.config.Rules.CustomFile, a.log)
				if err != nil {
					return err
				}
				rule, err := registry.Add(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s pattern %s\n", rule.Category, rule.Pattern)
				return nil
			},
		},
		&cobra.Command{
			Use:   "suggest <selection>",
			Short: "Suggest a pattern from a piece of highlighted text",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pattern, err := harvest.SuggestPattern(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pattern)
				return nil
			},
		},
		&cobra.Command{
			Use:   "test <pattern> <sample>",
			Short: "Show what a pattern matches in a sample text",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				matches, err := harvest.TestPattern(args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.jsonOutput {
					return json.NewEncoder(out).Encode(matches)
				}
				if len(matches) == 0 {
					fmt.Fprintln(out, "no matches")
					return nil
				}
				for _, m := range matches {
					fmt.Fprintf(out, "%d-%d\t%s\n", m.Start, m.End, m.Text)
				}
				return nil
			},
		},
	)
	return cmd
}
