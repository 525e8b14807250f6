package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSyncTools() {
	s.mcp.AddTool(mcp.NewTool("sync_binder",
		mcp.WithDescription("Push a binder's queued changes to the remote store as one batch and adopt its post-write state"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleSync)

	s.mcp.AddTool(mcp.NewTool("revert_binder",
		mcp.WithDescription("🛑 DESTRUCTIVE: Discard every queued change, restoring the binder to the last synced state"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRevert)

	s.mcp.AddTool(mcp.NewTool("pull_binder",
		mcp.WithDescription("Refresh a binder's local snapshot from the remote store (refused while changes are queued)"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handlePull)

	s.mcp.AddTool(mcp.NewTool("set_auto_sync",
		mcp.WithDescription("Set or clear a binder's auto-sync cron schedule"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("cron", mcp.Description("Standard cron expression; empty clears the schedule")),
	), s.handleSetAutoSync)

	s.mcp.AddTool(mcp.NewTool("list_sync_runs",
		mcp.WithDescription("List a binder's recent sync attempts"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleListRuns)

	s.mcp.AddTool(mcp.NewTool("save_gate_state",
		mcp.WithDescription("Report the save gate's phase: idle, cooling, or rate limited"),
	), s.handleGateState)
}

func (s *Server) handleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	snap, err := s.sync.SyncToRemote(ctx, binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(snap)
}

func (s *Server) handleRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	if err := s.sync.RevertToRemote(ctx, binderID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Reverted binder %s to the last synced state", binderID)), nil
}

func (s *Server) handlePull(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	snap, err := s.sync.Pull(ctx, binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(snap)
}

func (s *Server) handleSetAutoSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	expr, _ := args["cron"].(string)
	if err := s.sync.SetAutoSyncCron(ctx, binderID, expr); err != nil {
		return nil, err
	}
	if expr == "" {
		return textResult(fmt.Sprintf("Cleared auto-sync for binder %s", binderID)), nil
	}
	return textResult(fmt.Sprintf("Binder %s now auto-syncs on %q", binderID, expr)), nil
}

func (s *Server) handleListRuns(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	runs, err := s.sync.ListRuns(binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(runs)
}

func (s *Server) handleGateState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sync.GateState())
}
