// Package mcp exposes the workflow parser and engine as MCP tools.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/workflow/pkg/config"
	"github.com/ormasoftchile/workflow/pkg/diagram"
	"github.com/ormasoftchile/workflow/pkg/engine"
	"github.com/ormasoftchile/workflow/pkg/parser"
	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/render"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// HandleValidate implements the workflow/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wf, warnings, res := load(req)
	if res != nil {
		return res, nil
	}
	msg := fmt.Sprintf("✓ %s is valid (%d steps)", title(wf), wf.Len())
	for _, w := range warnings {
		msg += "\nwarning: " + w.String()
	}
	return textResult(msg), nil
}

// HandleList implements the workflow/list MCP tool.
func HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wf, _, res := load(req)
	if res != nil {
		return res, nil
	}
	name, _ := req.GetArguments()["format"].(string)
	if name == "" {
		name = string(render.FormatJSON)
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	var out bytes.Buffer
	if err := render.List(&out, wf, format, false); err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(out.String()), nil
}

// HandleDiagram implements the workflow/diagram MCP tool.
func HandleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wf, _, res := load(req)
	if res != nil {
		return res, nil
	}
	args := req.GetArguments()
	formatName, _ := args["format"].(string)
	format, err := diagram.ParseFormat(formatName)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	modeName, _ := args["mode"].(string)
	mode, err := schema.ParseMode(modeName)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	out, err := diagram.Generate(wf, mode, format)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(out), nil
}

// HandleSchema implements the workflow/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "workflow":
		data, err = schema.GenerateWorkflowJSONSchema()
	case "config":
		data, err = config.GenerateConfigJSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q, use 'workflow' or 'config'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleRun implements the workflow/run MCP tool. Output is always captured,
// and prompts are answered from the answers argument.
func HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wf, _, res := load(req)
	if res != nil {
		return res, nil
	}
	args := req.GetArguments()

	modeName, _ := args["mode"].(string)
	mode, err := schema.ParseMode(modeName)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	dryRun := true // safe default for AI agents
	if v, ok := args["dry_run"].(bool); ok {
		dryRun = v
	}
	var answers []string
	if raw, ok := args["answers"].([]any); ok {
		for _, a := range raw {
			answers = append(answers, fmt.Sprint(a))
		}
	}

	path, _ := args["path"].(string)
	var out bytes.Buffer
	var executor providers.CommandExecutor = &providers.DryRunExecutor{Out: &out}
	if !dryRun {
		sh := providers.NewShellExecutor("sh", providers.Capture)
		sh.Dir = filepath.Dir(path)
		executor = sh
	}
	prompter := providers.NewScriptedPrompter(answers...)
	prompter.Out = &out

	eng := engine.New(wf, engine.Config{
		Mode:     mode,
		Executor: executor,
		Prompter: prompter,
		Reporter: render.NewPrinter(&out, &out, false),
		Name:     title(wf),
		Stdout:   &out,
		Stderr:   &out,
	})
	result, runErr := eng.Run(ctx)

	response := map[string]any{
		"mode":    string(mode),
		"dry_run": dryRun,
		"visited": eng.VisitedSteps,
	}
	if result != nil {
		response["outcome"] = string(result.Outcome)
		response["iterations"] = result.Iterations
		response["duration"] = result.Duration.String()
		response["exit_code"] = result.ExitCode()
		if result.Message != "" {
			response["message"] = result.Message
		}
		if result.Step != 0 {
			response["step"] = result.Step
		}
	}
	if runErr != nil {
		response["outcome"] = "error"
		response["error"] = runErr.Error()
		if errors.Is(runErr, engine.ErrCancelled) {
			response["exit_code"] = 2
		} else {
			response["exit_code"] = 4
		}
	}
	if out.Len() > 0 {
		response["output"] = out.String()
	}

	data, _ := json.MarshalIndent(response, "", "  ")
	isErr := runErr != nil || (result != nil && result.Outcome != engine.OutcomeSuccess)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}, nil
}

// load parses the workflow named by the path argument. A non-nil result is
// the error to return to the client.
func load(req mcp.CallToolRequest) (*schema.Workflow, []parser.Warning, *mcp.CallToolResult) {
	path, _ := req.GetArguments()["path"].(string)
	if path == "" {
		return nil, nil, errorResult("path argument is required")
	}
	wf, warnings, err := parser.ParseFile(path)
	if err != nil {
		return nil, nil, errorResult(formatError(err))
	}
	return wf, warnings, nil
}

func formatError(err error) string {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("[%s] %s", pe.Code, pe.Error())
	}
	return err.Error()
}

func title(wf *schema.Workflow) string {
	if t := strings.TrimSpace(wf.Title); t != "" {
		return t
	}
	return "workflow"
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
