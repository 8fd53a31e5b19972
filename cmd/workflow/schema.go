package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/workflow/pkg/config"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export JSON Schema to stdout",
}

var schemaWorkflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Export the parsed workflow model JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateWorkflowJSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var schemaConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Export the runner config JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.GenerateConfigJSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaWorkflowCmd)
	schemaCmd.AddCommand(schemaConfigCmd)
	rootCmd.AddCommand(schemaCmd)
}
