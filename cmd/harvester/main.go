package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feichai0017/document-harvester/config"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// app carries what every subcommand needs once the root flags are parsed.
type app struct {
	configPath string
	verbose    bool
	jsonOutput bool

	config *config.Config
	log    logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Extract model and bulletin identifiers from PDF documents",
		Long:          "harvester reads PDF documents (embedded text, OCR as fallback), applies the pattern library and triages each document as Pass or Needs Review.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv(config.EnvConfigPath), "Path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Write logs to stderr")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print machine-readable JSON")

	root.AddCommand(
		newScanCmd(a),
		newRescanCmd(a),
		newHarvestCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newPatternsCmd(a),
		newCleanupCmd(a),
	)
	return root
}

func (a *app) setup() error {
	c, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.config = c

	if !a.verbose {
		a.log = logger.NewNop()
		return nil
	}

	// stdout 留给命令输出
	lc := c.Logger
	lc.Encoding = "console"
	lc.OutputPaths = replacePath(lc.OutputPaths, "stdout", "stderr")
	log, err := logger.NewLogger(logger.WithConfig(lc))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log
	return nil
}

func replacePath(paths []string, from, to string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if p == from {
			p = to
		}
		out[i] = p
	}
	return out
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
