// Package main provides the workflow-mcp binary, an MCP server on stdio for
// AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	wmcp "github.com/ormasoftchile/workflow/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	s := wmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
