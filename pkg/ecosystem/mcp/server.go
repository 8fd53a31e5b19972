package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with the workflow tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"workflow",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("workflow/validate",
			mcp.WithDescription("Parse and validate a markdown workflow file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow markdown file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("workflow/list",
			mcp.WithDescription("List the steps of a markdown workflow without executing anything"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow markdown file")),
			mcp.WithString("format", mcp.Description("Output format: json (default), yaml or text")),
		),
		HandleList,
	)

	s.AddTool(
		mcp.NewTool("workflow/diagram",
			mcp.WithDescription("Draw the control flow of a workflow under an execution mode"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow markdown file")),
			mcp.WithString("format", mcp.Description("Diagram format: mermaid (default) or ascii")),
			mcp.WithString("mode", mcp.Description("Execution mode: enforcement (default) or guided")),
		),
		HandleDiagram,
	)

	s.AddTool(
		mcp.NewTool("workflow/run",
			mcp.WithDescription("Run a workflow (defaults to dry-run mode for safety); output is captured"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow markdown file")),
			mcp.WithString("mode", mcp.Description("Execution mode: enforcement (default) or guided")),
			mcp.WithBoolean("dry_run", mcp.Description("Report commands instead of running them (default true)")),
			mcp.WithArray("answers", mcp.Description("Answers to prompts in order; missing answers count as no"),
				mcp.Items(map[string]any{"type": "string"})),
		),
		HandleRun,
	)

	s.AddTool(
		mcp.NewTool("workflow/schema",
			mcp.WithDescription("Export a JSON Schema (workflow model or runner config)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'workflow' or 'config'")),
		),
		HandleSchema,
	)

	return s
}
