package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/runlet/internal/config"
	"github.com/michaelbrown/runlet/internal/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		return
	}

	profile, err := cfg.Profile()
	if err != nil {
		fmt.Printf("profile error: %v\n", err)
		return
	}
	eng := engine.New(profile)

	s := server.NewMCPServer("runlet-script-runner", "0.1.0")

	s.AddTool(mcp.Tool{
		Name: "script_run",
		Description: fmt.Sprintf(
			"Execute a %s script in an isolated child process with a wall-clock timeout and bounded output.",
			profile.Name),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"inputs": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Input values fed to the script's standard input, one per line, in order (optional)",
				},
			},
			Required: []string{"code"},
		},
	}, makeScriptRunHandler(eng))

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}

func makeScriptRunHandler(eng *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			return errResult("error: invalid arguments"), nil
		}

		code, _ := args["code"].(string)
		if code == "" {
			return errResult("error: 'code' is required"), nil
		}

		var inputs []string
		if raw, ok := args["inputs"].([]any); ok {
			for _, v := range raw {
				s, ok := v.(string)
				if !ok {
					return errResult("error: 'inputs' must be an array of strings"), nil
				}
				inputs = append(inputs, s)
			}
		}

		res := eng.Execute(ctx, code, inputs)

		switch res.Outcome {
		case engine.OutcomeOK:
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: res.Output}},
			}, nil
		case engine.OutcomeTimeout:
			return errResult("error: execution timed out"), nil
		default:
			return errResult("error: could not run the script"), nil
		}
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
