package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/workflow/pkg/config"
	"github.com/ormasoftchile/workflow/pkg/diagram"
	"github.com/ormasoftchile/workflow/pkg/logging"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

var (
	diagramFormat string
	diagramGuided bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [file.md]",
	Short: "Draw the control flow of a workflow (mermaid or ascii)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagram,
}

func runDiagram(cmd *cobra.Command, args []string) error {
	format, err := diagram.ParseFormat(diagramFormat)
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	cfg, err := config.Load(flags.config)
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	mode := cfg.ExecutionMode()
	if diagramGuided {
		mode = schema.Guided
	}

	log, err := logging.New(logging.Options{Debug: flags.debug || cfg.Debug, Format: cfg.LogFormat})
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	defer func() { _ = log.Sync() }()

	wf, err := loadWorkflow(args[0], log)
	if err != nil {
		return err
	}
	out, err := diagram.Generate(wf, mode, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	diagramCmd.Flags().StringVar(&diagramFormat, "format", "mermaid", "Diagram format: mermaid or ascii")
	diagramCmd.Flags().BoolVar(&diagramGuided, "guided", false, "Draw the guided-mode flow (default enforcement)")
	rootCmd.AddCommand(diagramCmd)
}
