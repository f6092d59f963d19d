package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db    *sql.DB
	cfg   *config.Config
	sched *ops.Scheduler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, sched *ops.Scheduler) *Handlers {
	return &Handlers{db: db, cfg: cfg, sched: sched}
}

// operator is the viewer for MCP tools. The stdio transport is a local
// operator surface with no login step, so every tool runs with admin
// standing.
var operator = ops.Viewer{Name: "local-operator", Admin: true}

// LookupRequest represents the arguments for creature_lookup.
type LookupRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for creature_list and box_list.
type ListRequest struct {
	Owner string `json:"owner"`
}

// HandleLookup implements the creature_lookup tool.
func (h *Handlers) HandleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[LookupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{ID: args.ID, Viewer: operator})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList implements the creature_list tool. Listing runs as the owner
// so the projection matches what the user themselves would see.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Owner == "" {
		return errorResult(errors.NewInvalidRequest("owner is required")), nil
	}

	result, err := ops.Mine(ctx, h.db, ops.MineInput{Viewer: ops.Viewer{Name: args.Owner}})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePending implements the creature_pending tool.
func (h *Handlers) HandlePending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Pending(ctx, h.db, ops.PendingInput{Viewer: operator})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBoxList implements the box_list tool.
func (h *Handlers) HandleBoxList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Owner == "" {
		return errorResult(errors.NewInvalidRequest("owner is required")), nil
	}

	result, err := ops.MyBoxes(ctx, h.db, ops.MyBoxesInput{Viewer: ops.Viewer{Name: args.Owner}})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSweep implements the creature_sweep tool.
func (h *Handlers) HandleSweep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	purged, err := h.sched.Sweep(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"purged": purged})
}

// errorResult converts an error into a structured MCP tool result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": pErr.Message,
			"status":  pErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if pErr.Code != errors.ErrInternal && pErr.Details != nil {
			errorObj["details"] = pErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult wraps data in a JSON tool result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
