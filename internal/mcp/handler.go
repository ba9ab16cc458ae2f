package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arcoapp/arco-admin/internal/service"
)

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. The model sees it and can
// correct itself; the MCP session stays open.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// serviceError reports a service failure using its client-safe message.
func serviceError(action string, err error) (*mcp.CallToolResult, error) {
	return toolError("%s: %s", action, service.Message(err))
}

// requireID extracts a positive integer id argument.
func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	v, err := request.RequireFloat(key)
	if err != nil {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	id := int64(v)
	if id <= 0 || float64(id) != v {
		return 0, fmt.Errorf("parameter %q must be a positive integer", key)
	}
	return id, nil
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
