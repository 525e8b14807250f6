// Package mcpserver exposes the binder core over the Model Context
// Protocol so AI agents can arrange binders, queue edits and drive
// reconciliation through the same services the HTTP API fronts.
package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// Server is the MCP server for the binder core.
type Server struct {
	mcp *server.MCPServer

	binders *service.BinderService
	cards   *service.CardService
	ledger  *service.LedgerService
	sync    *service.SyncService
}

// Deps holds the services passed from the app layer.
type Deps struct {
	Binders *service.BinderService
	Cards   *service.CardService
	Ledger  *service.LedgerService
	Sync    *service.SyncService
}

// New creates and configures an MCP server with all binder tools.
func New(deps Deps) *Server {
	s := &Server{
		binders: deps.Binders,
		cards:   deps.Cards,
		ledger:  deps.Ledger,
		sync:    deps.Sync,
	}

	s.mcp = server.NewMCPServer(
		"binder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerBinderTools()
	s.registerCardTools()
	s.registerChangeTools()
	s.registerSyncTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// requireString extracts a required string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// intArg extracts an optional number argument with a fallback.
func intArg(args map[string]any, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func boolPtr(v bool) *bool { return &v }
