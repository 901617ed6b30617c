package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/retrace/internal/errors"
)

// decode round-trips MCP tool arguments through JSON into the tool's typed
// request struct. A payload that does not fit the struct comes back as a
// ready-to-emit INVALID_REQUEST, so handlers pass the error straight to
// errorResult.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("arguments not serializable: %v", err))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.NewInvalidRequest(fmt.Sprintf("arguments do not match the tool schema: %v", err))
	}
	return out, nil
}
