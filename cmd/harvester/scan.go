package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/internal/service/document"
)

func newScanCmd(a *app) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "scan <file-or-directory>...",
		Short: "Extract and harvest PDF documents",
		Long:  "Processes the given PDF files, and every *.pdf inside the given directories, in order. The extracted text of each document is written to the output directory as <name>.txt and the record is stored in the database.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := document.ExpandPaths(args, recursive)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no PDF files found")
			}

			// Ctrl-C 在文档之间停止批处理
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := document.GetService(ctx, a.config, a.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			var (
				summary  *document.BatchSummary
				printErr error
			)
			// 输出失败后停止批处理, 但要读完事件, 否则 worker 会阻塞在 Close 之前
			for ev := range svc.ProcessBatch(ctx, paths) {
				if printErr == nil {
					if printErr = a.printEvent(cmd.OutOrStdout(), cmd.ErrOrStderr(), ev); printErr != nil {
						stop()
					}
				}
				if ev.Type == document.EventFinished {
					summary = ev.Summary
				}
			}
			if printErr != nil {
				return printErr
			}
			if summary != nil && summary.Cancelled {
				return fmt.Errorf("cancelled after %d of %d documents", summary.Processed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Include PDFs in subdirectories")
	return cmd
}

func (a *app) printEvent(out, errOut io.Writer, ev document.Event) error {
	if a.jsonOutput {
		return json.NewEncoder(out).Encode(ev)
	}

	switch ev.Type {
	case document.EventProgress:
		fmt.Fprintf(out, "[%d/%d] %s\n", ev.Index, ev.Total, ev.Message)
	case document.EventWarning:
		fmt.Fprintf(errOut, "warning: %s\n", ev.Message)
	case document.EventResult:
		doc := ev.Document
		fmt.Fprintf(out, "  %s: %s\n", doc.Status, doc.StatusReason)
		for _, f := range doc.Findings {
			fmt.Fprintf(out, "    %s: %s\n", f.Category, f.Text)
		}
	case document.EventFinished:
		s := ev.Summary
		fmt.Fprintf(out, "%s pass=%d review=%d error=%d\n", ev.Message, s.Pass, s.Review, s.Errors)
		for _, d := range s.Diagnostics {
			fmt.Fprintf(errOut, "warning: skipped rule %s %q: %s\n", d.Category, d.Pattern, d.Cause)
		}
	}
	return nil
}
