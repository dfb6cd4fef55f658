// ABOUTME: Shared helpers for building tool results and reading arguments
// ABOUTME: Expected tool failures become IsError results, not Go errors

package engine

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// resultText wraps text in a successful CallToolResult.
func resultText(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// resultErr wraps an error in a CallToolResult with IsError set, so the
// client sees a tool-level failure rather than a protocol error.
func resultErr(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(err.Error())},
		IsError: true,
	}
}

// resultJSON serialises v and returns it as a CallToolResult.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(v)
}

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcp.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg extracts a named int argument. The protocol serialises numbers as
// float64, so both representations are accepted.
func intArg(req mcp.CallToolRequest, name string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// boolArg extracts a named bool argument.
func boolArg(req mcp.CallToolRequest, name string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// stringSliceArg extracts a named string array argument. Elements that are
// not strings are skipped. Returns nil when the argument is absent.
func stringSliceArg(req mcp.CallToolRequest, name string) []string {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	raw, ok := args[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
