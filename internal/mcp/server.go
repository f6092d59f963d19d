// Package mcp exposes porystore to local operators over the Model Context
// Protocol. The tools are a read-and-reconcile surface: inspection of
// creatures, boxes and pending deletions, plus the sweep. Mutation of user
// data stays on the authenticated HTTP API.
package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"creature_lookup": {
		def:     lookupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLookup },
	},
	"creature_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"creature_pending": {
		def:     pendingToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePending },
	},
	"creature_sweep": {
		def:     sweepToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSweep },
	},
	"box_list": {
		def:     boxListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBoxList },
	},
}

// AllToolNames returns a list of all tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with porystore tools registered.
func NewServer(db *sql.DB, cfg *config.Config, sched *ops.Scheduler, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"porystore",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, sched)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, sched *ops.Scheduler, version string) error {
	s := NewServer(db, cfg, sched, version)
	return server.ServeStdio(s)
}
