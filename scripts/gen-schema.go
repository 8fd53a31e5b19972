//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/ormasoftchile/workflow/pkg/config"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

func main() {
	if err := os.MkdirAll("schemas", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	data, err := schema.GenerateWorkflowJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating workflow schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/workflow-v1.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/workflow-v1.json")

	cfgData, err := config.GenerateConfigJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating config schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/config-v1.json", cfgData, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/config-v1.json")
}
