package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var lookupToolDef = mcp.NewTool("creature_lookup",
	mcp.WithDescription("Look up one stored creature by ID, including its notes, download count and whether it is the only copy of its kind in the store."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Creature ID (ULID)"),
	),
)

var listToolDef = mcp.NewTool("creature_list",
	mcp.WithDescription("List a user's stored creatures. Creatures pending deletion are excluded."),
	mcp.WithString("owner",
		mcp.Required(),
		mcp.Description("Username whose creatures to list"),
	),
)

var pendingToolDef = mcp.NewTool("creature_pending",
	mcp.WithDescription("List creatures currently pending deletion, oldest first. An entry far past the configured grace period indicates a purge that failed and will be retried by the sweep."),
)

var boxListToolDef = mcp.NewTool("box_list",
	mcp.WithDescription("List a user's boxes with the number of creatures in each."),
	mcp.WithString("owner",
		mcp.Required(),
		mcp.Description("Username whose boxes to list"),
	),
)

var sweepToolDef = mcp.NewTool("creature_sweep",
	mcp.WithDescription("Purge every creature whose pending deletion outlived the grace period. Reconciles deletions stranded by a restart or a failed purge."),
)
